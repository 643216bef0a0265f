package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/lumenjournal/lumen/docstore/notion"
)

// The File Upload API is not covered by the Notion client library, so
// this sink talks to it directly.
const (
	notionAPIBase    = "https://api.notion.com"
	notionAPIVersion = "2022-06-28"

	// Files above singlePartMax must be sent in numbered parts of
	// partSize bytes (the last part may be smaller).
	singlePartMax = 20 << 20
	partSize      = 10 << 20
)

// NotionSink stores media as Notion file uploads. The returned Ref is
// an upload reference that the notion document store turns into a
// file_upload attachment when the moment is written.
type NotionSink struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Sink = (*NotionSink)(nil)

// NewNotionSink returns a sink uploading with the given integration
// token.
func NewNotionSink(apiKey string) *NotionSink {
	return &NotionSink{
		apiKey:  apiKey,
		baseURL: notionAPIBase,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type fileUpload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *NotionSink) Store(ctx context.Context, kind Kind, filename, contentType string, data []byte) (*Result, error) {
	var (
		up  *fileUpload
		err error
	)
	if len(data) <= singlePartMax {
		up, err = s.storeSinglePart(ctx, filename, contentType, data)
	} else {
		up, err = s.storeMultiPart(ctx, filename, contentType, data)
	}
	if err != nil {
		return nil, err
	}
	res := &Result{
		Ref:  notion.UploadRef(up.ID, filename),
		Name: filename,
		Size: int64(len(data)),
		Type: kind,
	}
	if kind == KindImage {
		res.Width, res.Height = imageDims(data)
	}
	return res, nil
}

func (s *NotionSink) storeSinglePart(ctx context.Context, filename, contentType string, data []byte) (*fileUpload, error) {
	up, err := s.createUpload(ctx, map[string]any{
		"filename":     filename,
		"content_type": contentType,
	})
	if err != nil {
		return nil, err
	}
	if err := s.sendPart(ctx, up.ID, filename, data, 0); err != nil {
		return nil, err
	}
	return up, nil
}

func (s *NotionSink) storeMultiPart(ctx context.Context, filename, contentType string, data []byte) (*fileUpload, error) {
	parts := (len(data) + partSize - 1) / partSize
	up, err := s.createUpload(ctx, map[string]any{
		"filename":        filename,
		"content_type":    contentType,
		"mode":            "multi_part",
		"number_of_parts": parts,
	})
	if err != nil {
		return nil, err
	}
	for i := 0; i < parts; i++ {
		start := i * partSize
		end := start + partSize
		if end > len(data) {
			end = len(data)
		}
		if err := s.sendPart(ctx, up.ID, filename, data[start:end], i+1); err != nil {
			return nil, err
		}
	}
	return up, s.completeUpload(ctx, up.ID)
}

func (s *NotionSink) createUpload(ctx context.Context, body map[string]any) (*fileUpload, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := s.newRequest(ctx, http.MethodPost, "/v1/file_uploads", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var up fileUpload
	if err := s.do(req, &up); err != nil {
		return nil, fmt.Errorf("creating file upload: %w", err)
	}
	return &up, nil
}

// sendPart uploads one chunk. partNumber zero means a single-part
// upload, which carries no part_number field.
func (s *NotionSink) sendPart(ctx context.Context, id, filename string, data []byte, partNumber int) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if partNumber > 0 {
		if err := w.WriteField("part_number", strconv.Itoa(partNumber)); err != nil {
			return err
		}
	}
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/v1/file_uploads/"+id+"/send", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := s.do(req, nil); err != nil {
		return fmt.Errorf("sending file part: %w", err)
	}
	return nil
}

func (s *NotionSink) completeUpload(ctx context.Context, id string) error {
	req, err := s.newRequest(ctx, http.MethodPost, "/v1/file_uploads/"+id+"/complete", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := s.do(req, nil); err != nil {
		return fmt.Errorf("completing file upload: %w", err)
	}
	return nil
}

func (s *NotionSink) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Notion-Version", notionAPIVersion)
	return req, nil
}

func (s *NotionSink) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("file upload API returned %d: %s", resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
