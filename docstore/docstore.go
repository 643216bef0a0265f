// Package docstore defines the document-store abstraction holding
// journal moments. The store is an external collaborator: records with
// typed properties, paginated queries with filter predicates, and
// archival instead of hard deletion. Three implementations exist:
// notion (the hosted document database), bolt (local file) and memory
// (tests and development).
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when a moment does not exist or is archived.
var ErrNotFound = errors.New("moment not found")

// Status is the workflow state of a moment.
type Status string

const (
	StatusFlash      Status = "flash"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ValidStatus reports whether s is one of the known workflow states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusFlash, StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Moment is a single journal entry.
type Moment struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Tags           []string  `json:"tags"`
	Status         Status    `json:"status"`
	Images         []string  `json:"images"`
	Videos         []string  `json:"videos"`
	CreatedTime    time.Time `json:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time"`
	URL            string    `json:"url,omitempty"`
	Favorited      bool      `json:"favorited"`
}

// Create holds the fields for a new moment. Title is derived from the
// content; BaseURL resolves relative upload paths into absolute media
// URLs for stores that require them.
type Create struct {
	Content   string
	Tags      []string
	Status    Status
	Images    []string
	Videos    []string
	Favorited bool
	BaseURL   string
}

// Update is a partial patch; nil fields are left untouched.
type Update struct {
	Content   *string
	Tags      *[]string
	Status    *Status
	Images    *[]string
	Videos    *[]string
	Favorited *bool
	BaseURL   string
}

// Filter restricts a query. Zero values match everything.
type Filter struct {
	Status    Status
	Tag       string
	Favorited *bool
	Search    string
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return f.Status == "" && f.Tag == "" && f.Favorited == nil && f.Search == ""
}

// Query is a paginated, filtered moment listing request.
type Query struct {
	PageSize int
	Cursor   string
	Filter   Filter
}

// Page is one page of query results. Total counts the moments in this
// page, not the whole collection.
type Page struct {
	Moments    []*Moment `json:"moments"`
	Total      int       `json:"total"`
	HasMore    bool      `json:"has_more"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// TagCount is a tag name with the number of moments carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Store is the document-store interface.
type Store interface {
	Create(ctx context.Context, c Create) (*Moment, error)
	Query(ctx context.Context, q Query) (*Page, error)
	Get(ctx context.Context, id string) (*Moment, error)
	Update(ctx context.Context, id string, u Update) (*Moment, error)
	// Archive soft-deletes a moment; archived moments are invisible to
	// every other operation.
	Archive(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (*Moment, error)
	Tags(ctx context.Context) ([]TagCount, error)
	Ping(ctx context.Context) error
}

// titleRuneLimit caps derived titles at the document database's
// preview length.
const titleRuneLimit = 20

// TitleFromContent derives a moment title from its content: the first
// 20 runes, NFC-normalized.
func TitleFromContent(content string) string {
	content = Normalize(content)
	runes := []rune(content)
	if len(runes) > titleRuneLimit {
		runes = runes[:titleRuneLimit]
	}
	return string(runes)
}

// Normalize returns the NFC normal form of s. Tags and search input
// pass through here so that visually identical strings compare equal.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// NormalizeTags normalizes each tag and drops empties.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(Normalize(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether a moment satisfies the filter.
func (f Filter) Matches(m *Moment) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Tag != "" {
		tag := Normalize(f.Tag)
		found := false
		for _, t := range m.Tags {
			if t == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Favorited != nil && m.Favorited != *f.Favorited {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(Normalize(f.Search))
		if !strings.Contains(strings.ToLower(m.Title), needle) &&
			!strings.Contains(strings.ToLower(m.Content), needle) {
			return false
		}
	}
	return true
}
