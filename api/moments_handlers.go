package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumenjournal/lumen/docstore"
)

// ListMoments handles GET /api/moments with optional pagination and
// filter query parameters.
func (a *API) ListMoments(w http.ResponseWriter, r *http.Request) {
	q := docstore.Query{
		Cursor: r.URL.Query().Get("cursor"),
		Filter: filterFromQuery(r),
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "page_size must be between 1 and 100")
			return
		}
		q.PageSize = n
	}

	page, err := a.store.Query(r.Context(), q)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, momentListResponse{Success: true, Page: page})
}

func filterFromQuery(r *http.Request) docstore.Filter {
	f := docstore.Filter{
		Tag:    r.URL.Query().Get("tag"),
		Search: r.URL.Query().Get("search"),
	}
	if s := docstore.Status(r.URL.Query().Get("status")); docstore.ValidStatus(s) {
		f.Status = s
	}
	if raw := r.URL.Query().Get("favorited"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			f.Favorited = &v
		}
	}
	return f
}

// CreateMoment handles POST /api/moments.
func (a *API) CreateMoment(w http.ResponseWriter, r *http.Request) {
	var req momentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "content is required")
		return
	}

	m, err := a.store.Create(r.Context(), docstore.Create{
		Content:   req.Content,
		Tags:      req.Tags,
		Status:    req.Status,
		Images:    req.Images,
		Videos:    req.Videos,
		Favorited: req.Favorited,
		BaseURL:   a.baseURL,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(auditMomentCreated, r, slog.String("moment_id", m.ID))
	writeJSON(w, http.StatusCreated, momentResponse{Success: true, Moment: m})
}

// GetMoment handles GET /api/moments/{id}.
func (a *API) GetMoment(w http.ResponseWriter, r *http.Request) {
	m, err := a.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, momentResponse{Success: true, Moment: m})
}

// UpdateMoment handles PUT /api/moments/{id}. The body is a partial
// patch; absent fields keep their value.
func (a *API) UpdateMoment(w http.ResponseWriter, r *http.Request) {
	var req momentPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}
	if req.Content != nil && *req.Content == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "content cannot be empty")
		return
	}
	if req.Status != nil && !docstore.ValidStatus(*req.Status) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "unknown status")
		return
	}

	id := chi.URLParam(r, "id")
	m, err := a.store.Update(r.Context(), id, docstore.Update{
		Content:   req.Content,
		Tags:      req.Tags,
		Status:    req.Status,
		Images:    req.Images,
		Videos:    req.Videos,
		Favorited: req.Favorited,
		BaseURL:   a.baseURL,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(auditMomentUpdated, r, slog.String("moment_id", id))
	writeJSON(w, http.StatusOK, momentResponse{Success: true, Moment: m})
}

// DeleteMoment handles DELETE /api/moments/{id}. Deletion archives the
// moment in the document store rather than destroying it.
func (a *API) DeleteMoment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.store.Archive(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	a.audit.log(auditMomentArchived, r, slog.String("moment_id", id))
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "moment archived"})
}

// ToggleFavorite handles PATCH /api/moments/{id}/favorite.
func (a *API) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	m, err := a.store.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, momentResponse{Success: true, Moment: m})
}

// SearchMoments handles GET /api/moments/search?q=. The query term is
// mandatory.
func (a *API) SearchMoments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query parameter q is required")
		return
	}
	page, err := a.store.Query(r.Context(), docstore.Query{Filter: docstore.Filter{Search: q}})
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, momentListResponse{Success: true, Page: page})
}

// ListTags handles GET /api/moments/tags.
func (a *API) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.store.Tags(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tagsResponse{Success: true, Tags: tags})
}

// FilterByStatus handles GET /api/moments/filter/status/{status}.
func (a *API) FilterByStatus(w http.ResponseWriter, r *http.Request) {
	status := docstore.Status(chi.URLParam(r, "status"))
	if !docstore.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "unknown status")
		return
	}
	a.listFiltered(w, r, docstore.Filter{Status: status})
}

// FilterByTag handles GET /api/moments/filter/tag/{tag}.
func (a *API) FilterByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "tag is required")
		return
	}
	a.listFiltered(w, r, docstore.Filter{Tag: tag})
}

// FilterFavorited handles GET /api/moments/filter/favorited.
func (a *API) FilterFavorited(w http.ResponseWriter, r *http.Request) {
	fav := true
	a.listFiltered(w, r, docstore.Filter{Favorited: &fav})
}

func (a *API) listFiltered(w http.ResponseWriter, r *http.Request, f docstore.Filter) {
	q := docstore.Query{Cursor: r.URL.Query().Get("cursor"), Filter: f}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 100 {
			q.PageSize = n
		}
	}
	page, err := a.store.Query(r.Context(), q)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, momentListResponse{Success: true, Page: page})
}
