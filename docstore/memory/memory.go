// Package memory provides an in-memory document store used by tests
// and development mode. Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenjournal/lumen/docstore"
)

// Store is a thread-safe in-memory docstore.Store.
type Store struct {
	mu      sync.RWMutex
	moments map[string]*docstore.Moment

	// now is the clock used for timestamps; tests may substitute it.
	now func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		moments: make(map[string]*docstore.Moment),
		now:     time.Now,
	}
}

func (s *Store) Create(_ context.Context, c docstore.Create) (*docstore.Moment, error) {
	status := c.Status
	if status == "" {
		status = docstore.StatusFlash
	}
	if !docstore.ValidStatus(status) {
		status = docstore.StatusFlash
	}
	now := s.now().UTC()
	m := &docstore.Moment{
		ID:             uuid.NewString(),
		Title:          docstore.TitleFromContent(c.Content),
		Content:        c.Content,
		Tags:           docstore.NormalizeTags(c.Tags),
		Status:         status,
		Images:         append([]string(nil), c.Images...),
		Videos:         append([]string(nil), c.Videos...),
		CreatedTime:    now,
		LastEditedTime: now,
		Favorited:      c.Favorited,
	}

	s.mu.Lock()
	s.moments[m.ID] = m
	s.mu.Unlock()
	return copyMoment(m), nil
}

func (s *Store) Query(_ context.Context, q docstore.Query) (*docstore.Page, error) {
	s.mu.RLock()
	all := make([]*docstore.Moment, 0, len(s.moments))
	for _, m := range s.moments {
		if q.Filter.Matches(m) {
			all = append(all, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedTime.After(all[j].CreatedTime)
	})

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	offset := 0
	if q.Cursor != "" {
		n, err := strconv.Atoi(q.Cursor)
		if err != nil || n < 0 {
			return nil, docstore.ErrNotFound
		}
		offset = n
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}

	page := &docstore.Page{
		Moments: make([]*docstore.Moment, 0, end-offset),
		HasMore: end < len(all),
	}
	for _, m := range all[offset:end] {
		page.Moments = append(page.Moments, copyMoment(m))
	}
	page.Total = len(page.Moments)
	if page.HasMore {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *Store) Get(_ context.Context, id string) (*docstore.Moment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.moments[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return copyMoment(m), nil
}

func (s *Store) Update(_ context.Context, id string, u docstore.Update) (*docstore.Moment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.moments[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	if u.Content != nil {
		m.Content = *u.Content
		m.Title = docstore.TitleFromContent(*u.Content)
	}
	if u.Tags != nil {
		m.Tags = docstore.NormalizeTags(*u.Tags)
	}
	if u.Status != nil && docstore.ValidStatus(*u.Status) {
		m.Status = *u.Status
	}
	if u.Images != nil {
		m.Images = append([]string(nil), (*u.Images)...)
	}
	if u.Videos != nil {
		m.Videos = append([]string(nil), (*u.Videos)...)
	}
	if u.Favorited != nil {
		m.Favorited = *u.Favorited
	}
	m.LastEditedTime = s.now().UTC()
	return copyMoment(m), nil
}

func (s *Store) Archive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.moments[id]; !ok {
		return docstore.ErrNotFound
	}
	delete(s.moments, id)
	return nil
}

func (s *Store) ToggleFavorite(ctx context.Context, id string) (*docstore.Moment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.moments[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	m.Favorited = !m.Favorited
	m.LastEditedTime = s.now().UTC()
	return copyMoment(m), nil
}

func (s *Store) Tags(_ context.Context) ([]docstore.TagCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, m := range s.moments {
		for _, t := range m.Tags {
			counts[t]++
		}
	}
	s.mu.RUnlock()

	out := make([]docstore.TagCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, docstore.TagCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func copyMoment(m *docstore.Moment) *docstore.Moment {
	cp := *m
	cp.Tags = append([]string(nil), m.Tags...)
	cp.Images = append([]string(nil), m.Images...)
	cp.Videos = append([]string(nil), m.Videos...)
	return &cp
}
