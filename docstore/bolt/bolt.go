// Package bolt provides a bbolt-backed document store for running
// without the hosted document database. Moments are stored as JSON
// values in a single bucket keyed by ID.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/lumenjournal/lumen/docstore"
)

var momentsBucket = []byte("moments")

// Store implements docstore.Store backed by a bbolt database.
type Store struct {
	db *bbolt.DB

	now func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// New returns a Store backed by the given bbolt database. The moments
// bucket is created if it does not exist.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(momentsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating moments bucket: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Open opens a bbolt database at the given path and returns a Store.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(_ context.Context, c docstore.Create) (*docstore.Moment, error) {
	status := c.Status
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
	if err := s.put(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) Query(_ context.Context, q docstore.Query) (*docstore.Page, error) {
	var all []*docstore.Moment
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(momentsBucket).ForEach(func(_, v []byte) error {
			var m docstore.Moment
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("decoding moment: %w", err)
			}
			if q.Filter.Matches(&m) {
				all = append(all, &m)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

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
		Moments: all[offset:end],
		Total:   end - offset,
		HasMore: end < len(all),
	}
	if page.Moments == nil {
		page.Moments = []*docstore.Moment{}
	}
	if page.HasMore {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (s *Store) Get(_ context.Context, id string) (*docstore.Moment, error) {
	var m docstore.Moment
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(momentsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s: %w", id, docstore.ErrNotFound)
		}
		return json.Unmarshal(data, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) Update(_ context.Context, id string, u docstore.Update) (*docstore.Moment, error) {
	var m docstore.Moment
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(momentsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s: %w", id, docstore.ErrNotFound)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return err
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
		out, err := json.Marshal(&m)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) Archive(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(momentsBucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%s: %w", id, docstore.ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

func (s *Store) ToggleFavorite(_ context.Context, id string) (*docstore.Moment, error) {
	var m docstore.Moment
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(momentsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s: %w", id, docstore.ErrNotFound)
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		m.Favorited = !m.Favorited
		m.LastEditedTime = s.now().UTC()
		out, err := json.Marshal(&m)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) Tags(_ context.Context) ([]docstore.TagCount, error) {
	counts := make(map[string]int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(momentsBucket).ForEach(func(_, v []byte) error {
			var m docstore.Moment
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			for _, t := range m.Tags {
				counts[t]++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

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

func (s *Store) Ping(context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(momentsBucket) == nil {
			return fmt.Errorf("moments bucket missing")
		}
		return nil
	})
}

func (s *Store) put(m *docstore.Moment) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(momentsBucket).Put([]byte(m.ID), data)
	})
}
