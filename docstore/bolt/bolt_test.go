package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenjournal/lumen/docstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "moments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.Create(ctx, docstore.Create{
		Content: "first entry in the local store",
		Tags:    []string{"local"},
		Status:  docstore.StatusTodo,
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, m.Title, got.Title)
	assert.Equal(t, docstore.StatusTodo, got.Status)
	assert.Equal(t, []string{"local"}, got.Tags)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moments.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	m, err := s.Create(ctx, docstore.Create{Content: "durable"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Content)
}

func TestUpdateAndArchive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.Create(ctx, docstore.Create{Content: "before"})
	require.NoError(t, err)

	content := "after the edit"
	got, err := s.Update(ctx, m.ID, docstore.Update{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "after the edit", got.Content)
	assert.Equal(t, "after the edit", got.Title)
	assert.True(t, got.LastEditedTime.After(got.CreatedTime))

	require.NoError(t, s.Archive(ctx, m.ID))
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.ErrorIs(t, s.Archive(ctx, m.ID), docstore.ErrNotFound)
}

func TestToggleFavorite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.Create(ctx, docstore.Create{Content: "star me"})
	require.NoError(t, err)

	got, err := s.ToggleFavorite(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorited)

	got, err = s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorited)
}

func TestQueryFilterAndPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, content := range []string{"alpha", "beta", "gamma"} {
		c := docstore.Create{Content: content}
		if i == 1 {
			c.Status = docstore.StatusCompleted
		}
		_, err := s.Create(ctx, c)
		require.NoError(t, err)
	}

	page, err := s.Query(ctx, docstore.Query{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Moments, 2)
	assert.Equal(t, "gamma", page.Moments[0].Content)
	assert.Equal(t, "beta", page.Moments[1].Content)
	assert.True(t, page.HasMore)

	page, err = s.Query(ctx, docstore.Query{PageSize: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Moments, 1)
	assert.Equal(t, "alpha", page.Moments[0].Content)
	assert.False(t, page.HasMore)

	page, err = s.Query(ctx, docstore.Query{Filter: docstore.Filter{Status: docstore.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, page.Moments, 1)
	assert.Equal(t, "beta", page.Moments[0].Content)
}

func TestTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, tags := range [][]string{{"a", "b"}, {"a"}} {
		_, err := s.Create(ctx, docstore.Create{Content: "x", Tags: tags})
		require.NoError(t, err)
	}

	counts, err := s.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, docstore.TagCount{Name: "a", Count: 2}, counts[0])
	assert.Equal(t, docstore.TagCount{Name: "b", Count: 1}, counts[1])
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
