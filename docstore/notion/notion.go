// Package notion implements the document store on top of a Notion
// database. Each moment is a page in the configured database; moment
// content lives both in a rich-text property (so listing never needs a
// per-page block fetch) and in the page body as a paragraph block.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/lumenjournal/lumen/docstore"
)

// Database property names. The target database must carry these
// columns with the matching types.
const (
	propTitle     = "Name"
	propContent   = "Content"
	propTags      = "Tags"
	propStatus    = "Status"
	propFavorited = "Favorited"
	propImages    = "Images"
	propVideos    = "Videos"
)

// UploadScheme prefixes media references that point at a completed
// Notion file upload rather than a fetchable URL. The reference
// carries the upload ID as host and the original filename as a query
// parameter: lumen-upload://<id>?filename=<name>.
const UploadScheme = "lumen-upload"

const queryPageLimit = 100

// Store implements docstore.Store against the Notion API.
type Store struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
}

var _ docstore.Store = (*Store)(nil)

// New returns a Store talking to the given database with the given
// integration token.
func New(apiKey, databaseID string) *Store {
	return &Store{
		client:     notionapi.NewClient(notionapi.Token(apiKey)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

func (s *Store) Create(ctx context.Context, c docstore.Create) (*docstore.Moment, error) {
	status := c.Status
	if !docstore.ValidStatus(status) {
		status = docstore.StatusFlash
	}
	title := docstore.TitleFromContent(c.Content)
	tags := docstore.NormalizeTags(c.Tags)

	props := notionapi.Properties{
		propTitle: notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: title}}},
		},
		propContent: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: c.Content}}},
		},
		propTags:      tagsProperty(tags),
		propStatus:    notionapi.SelectProperty{Select: notionapi.Option{Name: string(status)}},
		propFavorited: notionapi.CheckboxProperty{Checkbox: c.Favorited},
	}
	if p := filesProp(c.Images, c.BaseURL); p != nil {
		props[propImages] = p
	}
	if p := filesProp(c.Videos, c.BaseURL); p != nil {
		props[propVideos] = p
	}

	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: s.databaseID,
		},
		Properties: props,
		Children:   contentBlocks(c.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", mapErr(err))
	}
	return pageToMoment(page), nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) (*docstore.Page, error) {
	// The hosted database cannot full-text search page properties in a
	// database query, so search terms are matched client-side over an
	// unpaginated scan.
	if q.Filter.Search != "" {
		return s.querySearch(ctx, q)
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	req := &notionapi.DatabaseQueryRequest{
		Filter:   propertyFilter(q.Filter),
		Sorts:    createdDescending(),
		PageSize: pageSize,
	}
	if q.Cursor != "" {
		req.StartCursor = notionapi.Cursor(q.Cursor)
	}

	resp, err := s.client.Database.Query(ctx, s.databaseID, req)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", mapErr(err))
	}

	page := &docstore.Page{
		Moments: make([]*docstore.Moment, 0, len(resp.Results)),
		HasMore: resp.HasMore,
	}
	for i := range resp.Results {
		page.Moments = append(page.Moments, pageToMoment(&resp.Results[i]))
	}
	page.Total = len(page.Moments)
	if resp.HasMore {
		page.NextCursor = string(resp.NextCursor)
	}
	return page, nil
}

func (s *Store) querySearch(ctx context.Context, q docstore.Query) (*docstore.Page, error) {
	pages, err := s.scan(ctx, propertyFilter(q.Filter))
	if err != nil {
		return nil, err
	}

	out := &docstore.Page{Moments: []*docstore.Moment{}}
	needle := strings.ToLower(docstore.Normalize(q.Filter.Search))
	for _, p := range pages {
		m := pageToMoment(p)
		if strings.Contains(strings.ToLower(m.Title), needle) ||
			strings.Contains(strings.ToLower(m.Content), needle) {
			out.Moments = append(out.Moments, m)
		}
	}
	out.Total = len(out.Moments)
	return out, nil
}

// scan walks every page of the database matching filter.
func (s *Store) scan(ctx context.Context, filter notionapi.Filter) ([]*notionapi.Page, error) {
	var (
		pages  []*notionapi.Page
		cursor notionapi.Cursor
	)
	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter:      filter,
			Sorts:       createdDescending(),
			StartCursor: cursor,
			PageSize:    queryPageLimit,
		}
		resp, err := s.client.Database.Query(ctx, s.databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("querying database: %w", mapErr(err))
		}
		for i := range resp.Results {
			pages = append(pages, &resp.Results[i])
		}
		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}

func (s *Store) Get(ctx context.Context, id string) (*docstore.Moment, error) {
	page, err := s.client.Page.Get(ctx, notionapi.PageID(id))
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", mapErr(err))
	}
	if page.Archived {
		return nil, docstore.ErrNotFound
	}
	return pageToMoment(page), nil
}

func (s *Store) Update(ctx context.Context, id string, u docstore.Update) (*docstore.Moment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	props := notionapi.Properties{}
	if u.Content != nil {
		props[propTitle] = notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: docstore.TitleFromContent(*u.Content)}}},
		}
		props[propContent] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: *u.Content}}},
		}
	}
	if u.Tags != nil {
		props[propTags] = tagsProperty(docstore.NormalizeTags(*u.Tags))
	}
	if u.Status != nil && docstore.ValidStatus(*u.Status) {
		props[propStatus] = notionapi.SelectProperty{Select: notionapi.Option{Name: string(*u.Status)}}
	}
	if u.Favorited != nil {
		props[propFavorited] = notionapi.CheckboxProperty{Checkbox: *u.Favorited}
	}
	if u.Images != nil {
		props[propImages] = filesPropAllowEmpty(*u.Images, u.BaseURL)
	}
	if u.Videos != nil {
		props[propVideos] = filesPropAllowEmpty(*u.Videos, u.BaseURL)
	}

	page, err := s.client.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("updating page: %w", mapErr(err))
	}

	if u.Content != nil {
		if err := s.replaceBody(ctx, id, *u.Content); err != nil {
			return nil, err
		}
	}
	return pageToMoment(page), nil
}

// replaceBody swaps the page body for a single paragraph carrying the
// new content.
func (s *Store) replaceBody(ctx context.Context, id, content string) error {
	children, err := s.client.Block.GetChildren(ctx, notionapi.BlockID(id), &notionapi.Pagination{
		PageSize: queryPageLimit,
	})
	if err != nil {
		return fmt.Errorf("listing page body: %w", mapErr(err))
	}
	for _, child := range children.Results {
		if _, err := s.client.Block.Delete(ctx, child.GetID()); err != nil {
			return fmt.Errorf("removing page body: %w", mapErr(err))
		}
	}
	_, err = s.client.Block.AppendChildren(ctx, notionapi.BlockID(id), &notionapi.AppendBlockChildrenRequest{
		Children: contentBlocks(content),
	})
	if err != nil {
		return fmt.Errorf("writing page body: %w", mapErr(err))
	}
	return nil
}

func (s *Store) Archive(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	_, err := s.client.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   true,
	})
	if err != nil {
		return fmt.Errorf("archiving page: %w", mapErr(err))
	}
	return nil
}

func (s *Store) ToggleFavorite(ctx context.Context, id string) (*docstore.Moment, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	page, err := s.client.Page.Update(ctx, notionapi.PageID(id), &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{
			propFavorited: notionapi.CheckboxProperty{Checkbox: !m.Favorited},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("updating page: %w", mapErr(err))
	}
	return pageToMoment(page), nil
}

func (s *Store) Tags(ctx context.Context) ([]docstore.TagCount, error) {
	pages, err := s.scan(ctx, nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, p := range pages {
		for _, t := range pageTags(p) {
			counts[t]++
		}
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

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.Database.Get(ctx, s.databaseID); err != nil {
		return fmt.Errorf("fetching database: %w", mapErr(err))
	}
	return nil
}

func createdDescending() []notionapi.SortObject {
	return []notionapi.SortObject{{
		Timestamp: notionapi.TimestampCreated,
		Direction: notionapi.SortOrderDESC,
	}}
}

// propertyFilter translates the property-level parts of a filter; the
// search term is handled client-side.
func propertyFilter(f docstore.Filter) notionapi.Filter {
	var filters []notionapi.Filter
	if f.Status != "" {
		filters = append(filters, notionapi.PropertyFilter{
			Property: propStatus,
			Select:   &notionapi.SelectFilterCondition{Equals: string(f.Status)},
		})
	}
	if f.Tag != "" {
		filters = append(filters, notionapi.PropertyFilter{
			Property:    propTags,
			MultiSelect: &notionapi.MultiSelectFilterCondition{Contains: docstore.Normalize(f.Tag)},
		})
	}
	if f.Favorited != nil {
		cond := &notionapi.CheckboxFilterCondition{}
		if *f.Favorited {
			cond.Equals = true
		} else {
			cond.DoesNotEqual = true
		}
		filters = append(filters, notionapi.PropertyFilter{
			Property: propFavorited,
			Checkbox: cond,
		})
	}
	switch len(filters) {
	case 0:
		return nil
	case 1:
		return filters[0]
	default:
		return notionapi.AndCompoundFilter(filters)
	}
}

func tagsProperty(tags []string) notionapi.MultiSelectProperty {
	opts := make([]notionapi.Option, 0, len(tags))
	for _, t := range tags {
		opts = append(opts, notionapi.Option{Name: t})
	}
	return notionapi.MultiSelectProperty{MultiSelect: opts}
}

func contentBlocks(content string) []notionapi.Block {
	return []notionapi.Block{
		&notionapi.ParagraphBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeParagraph,
			},
			Paragraph: notionapi.Paragraph{
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: content}}},
			},
		},
	}
}

func pageToMoment(p *notionapi.Page) *docstore.Moment {
	m := &docstore.Moment{
		ID:             p.ID.String(),
		Status:         docstore.StatusFlash,
		Tags:           []string{},
		Images:         []string{},
		Videos:         []string{},
		CreatedTime:    p.CreatedTime,
		LastEditedTime: p.LastEditedTime,
		URL:            p.URL,
	}
	if tp, ok := p.Properties[propTitle].(*notionapi.TitleProperty); ok {
		m.Title = plainText(tp.Title)
	}
	if rp, ok := p.Properties[propContent].(*notionapi.RichTextProperty); ok {
		m.Content = plainText(rp.RichText)
	}
	m.Tags = pageTags(p)
	if sp, ok := p.Properties[propStatus].(*notionapi.SelectProperty); ok && sp.Select.Name != "" {
		if st := docstore.Status(sp.Select.Name); docstore.ValidStatus(st) {
			m.Status = st
		}
	}
	if cp, ok := p.Properties[propFavorited].(*notionapi.CheckboxProperty); ok {
		m.Favorited = cp.Checkbox
	}
	if fp, ok := p.Properties[propImages].(*notionapi.FilesProperty); ok {
		m.Images = fileURLs(fp.Files)
	}
	if fp, ok := p.Properties[propVideos].(*notionapi.FilesProperty); ok {
		m.Videos = fileURLs(fp.Files)
	}
	return m
}

func pageTags(p *notionapi.Page) []string {
	mp, ok := p.Properties[propTags].(*notionapi.MultiSelectProperty)
	if !ok {
		return []string{}
	}
	tags := make([]string, 0, len(mp.MultiSelect))
	for _, o := range mp.MultiSelect {
		tags = append(tags, o.Name)
	}
	return tags
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, r := range rt {
		b.WriteString(r.PlainText)
	}
	return b.String()
}

func fileURLs(files []notionapi.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		switch {
		case f.External != nil && f.External.URL != "":
			out = append(out, f.External.URL)
		case f.File != nil && f.File.URL != "":
			out = append(out, f.File.URL)
		}
	}
	return out
}

func mapErr(err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return docstore.ErrNotFound
	}
	return err
}
