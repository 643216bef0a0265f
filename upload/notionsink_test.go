package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploadAPI records calls against the file upload endpoints.
type fakeUploadAPI struct {
	mu        sync.Mutex
	created   []map[string]any
	parts     []string // part_number field per send, "" for single part
	completed int
}

func (f *fakeUploadAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/file_uploads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Notion-Version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.created = append(f.created, body)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"id": "upload-1", "status": "pending"})
	})
	mux.HandleFunc("POST /v1/file_uploads/upload-1/send", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(64<<20))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		file.Close()
		f.mu.Lock()
		f.parts = append(f.parts, r.FormValue("part_number"))
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"id": "upload-1", "status": "uploaded"})
	})
	mux.HandleFunc("POST /v1/file_uploads/upload-1/complete", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.completed++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"id": "upload-1", "status": "uploaded"})
	})
	return mux
}

func newTestNotionSink(t *testing.T, api *fakeUploadAPI) *NotionSink {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	sink := NewNotionSink("secret-key")
	sink.baseURL = srv.URL
	return sink
}

func TestNotionSinkSinglePart(t *testing.T) {
	api := &fakeUploadAPI{}
	sink := newTestNotionSink(t, api)

	data := pngBytes(t)
	res, err := sink.Store(context.Background(), KindImage, "pic.png", "image/png", data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Ref, "lumen-upload://upload-1"), "ref %q", res.Ref)
	assert.Contains(t, res.Ref, "filename=pic.png")
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, KindImage, res.Type)
	assert.Equal(t, 2, res.Width)
	assert.Equal(t, 2, res.Height)

	require.Len(t, api.created, 1)
	assert.Equal(t, "pic.png", api.created[0]["filename"])
	assert.Equal(t, "image/png", api.created[0]["content_type"])
	assert.NotContains(t, api.created[0], "mode")
	assert.Equal(t, []string{""}, api.parts)
	assert.Zero(t, api.completed)
}

func TestNotionSinkMultiPart(t *testing.T) {
	api := &fakeUploadAPI{}
	sink := newTestNotionSink(t, api)

	data := make([]byte, singlePartMax+partSize/2)
	res, err := sink.Store(context.Background(), KindVideo, "big.mp4", "video/mp4", data)
	require.NoError(t, err)
	assert.Contains(t, res.Ref, "upload-1")

	require.Len(t, api.created, 1)
	assert.Equal(t, "multi_part", api.created[0]["mode"])
	assert.Equal(t, float64(3), api.created[0]["number_of_parts"])
	assert.Equal(t, []string{"1", "2", "3"}, api.parts)
	assert.Equal(t, 1, api.completed)
}

func TestNotionSinkSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"validation_error"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewNotionSink("secret-key")
	sink.baseURL = srv.URL
	_, err := sink.Store(context.Background(), KindImage, "pic.png", "image/png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
