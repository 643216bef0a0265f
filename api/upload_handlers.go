package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/lumenjournal/lumen/upload"
)

// maxBatchFiles caps a single multi-image upload.
const maxBatchFiles = 9

// UploadImage handles POST /api/upload/image with a multipart "file"
// field.
func (a *API) UploadImage(w http.ResponseWriter, r *http.Request) {
	a.storeOne(w, r, upload.KindImage)
}

// UploadVideo handles POST /api/upload/video.
func (a *API) UploadVideo(w http.ResponseWriter, r *http.Request) {
	a.storeOne(w, r, upload.KindVideo)
}

func (a *API) storeOne(w http.ResponseWriter, r *http.Request, kind upload.Kind) {
	if a.sink == nil {
		writeError(w, http.StatusInternalServerError, CodeServerError, "uploads not configured")
		return
	}
	name, contentType, data, ok := a.readUploadFile(w, r, "file")
	if !ok {
		return
	}
	if err := a.limits.Check(kind, name, data); err != nil {
		mapError(w, err)
		return
	}

	res, err := a.sink.Store(r.Context(), kind, name, contentType, data)
	if err != nil {
		a.audit.log(auditUploadStored, r, slog.String("error", err.Error()))
		mapError(w, err)
		return
	}
	a.audit.log(auditUploadStored, r, slog.String("ref", res.Ref), slog.Int64("size", res.Size))
	writeJSON(w, http.StatusCreated, uploadResponse{Success: true, File: res})
}

// UploadImages handles POST /api/upload/images: up to maxBatchFiles
// image files in one multipart request. The batch is validated as a
// whole before anything is stored, so a bad file rejects the batch.
func (a *API) UploadImages(w http.ResponseWriter, r *http.Request) {
	if a.sink == nil {
		writeError(w, http.StatusInternalServerError, CodeServerError, "uploads not configured")
		return
	}
	if err := r.ParseMultipartForm(a.parseLimit()); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid multipart request")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "no files provided")
		return
	}
	if len(files) > maxBatchFiles {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "too many files in one batch")
		return
	}

	type pending struct {
		name        string
		contentType string
		data        []byte
	}
	batch := make([]pending, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "unreadable file in batch")
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, a.limits.MaxBytes+1))
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "unreadable file in batch")
			return
		}
		if err := a.limits.Check(upload.KindImage, fh.Filename, data); err != nil {
			mapError(w, err)
			return
		}
		batch = append(batch, pending{fh.Filename, fh.Header.Get("Content-Type"), data})
	}

	results := make([]*upload.Result, 0, len(batch))
	for _, p := range batch {
		res, err := a.sink.Store(r.Context(), upload.KindImage, p.name, p.contentType, p.data)
		if err != nil {
			a.audit.log(auditUploadStored, r, slog.String("error", err.Error()))
			mapError(w, err)
			return
		}
		results = append(results, res)
	}
	a.audit.log(auditUploadStored, r, slog.Int("files", len(results)))
	writeJSON(w, http.StatusCreated, uploadBatchResponse{Success: true, Files: results})
}

// UploadInfo handles GET /api/upload/info: the limits a client should
// apply before bothering the server.
func (a *API) UploadInfo(w http.ResponseWriter, r *http.Request) {
	dest := "disabled"
	if a.sink != nil {
		dest = "enabled"
	}
	writeJSON(w, http.StatusOK, uploadInfoResponse{
		Success:         true,
		MaxFileSize:     a.limits.MaxBytes,
		ImageExtensions: a.limits.ImageExts,
		VideoExtensions: a.limits.VideoExts,
		Destination:     dest,
	})
}

// readUploadFile pulls a single multipart file field, bounded by the
// configured size cap.
func (a *API) readUploadFile(w http.ResponseWriter, r *http.Request, field string) (name, contentType string, data []byte, ok bool) {
	if err := r.ParseMultipartForm(a.parseLimit()); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid multipart request")
		return "", "", nil, false
	}
	f, fh, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "file field is required")
		return "", "", nil, false
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, a.limits.MaxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "unreadable file")
		return "", "", nil, false
	}
	return fh.Filename, fh.Header.Get("Content-Type"), data, true
}

func (a *API) parseLimit() int64 {
	if a.limits.MaxBytes > 0 {
		return a.limits.MaxBytes * (maxBatchFiles + 1)
	}
	return 64 << 20
}
