package notion

import (
	"net/url"
	"path"
	"strings"

	"github.com/jomei/notionapi"
)

// UploadRef builds a media reference for a completed file upload, to
// be attached to a moment's Images or Videos.
func UploadRef(id, filename string) string {
	u := url.URL{
		Scheme:   UploadScheme,
		Host:     id,
		RawQuery: url.Values{"filename": {filename}}.Encode(),
	}
	return u.String()
}

// fileRef is one entry of a files property in a page write. The client
// library only models url-backed files, so the file_upload variant is
// serialized by hand.
type fileRef struct {
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type"`
	External   *fileExternal  `json:"external,omitempty"`
	FileUpload *fileUploadRef `json:"file_upload,omitempty"`
}

type fileExternal struct {
	URL string `json:"url"`
}

type fileUploadRef struct {
	ID string `json:"id"`
}

// writeFilesProperty is the files property payload for page writes.
type writeFilesProperty struct {
	Files []fileRef `json:"files"`
}

var _ notionapi.Property = writeFilesProperty{}

func (writeFilesProperty) GetID() string { return "" }

func (writeFilesProperty) GetType() notionapi.PropertyType {
	return notionapi.PropertyTypeFiles
}

// filesProp builds a files property from media references, or nil when
// there are none. References carrying the upload scheme become
// file_upload attachments; everything else becomes an external URL,
// resolved against baseURL when relative.
func filesProp(refs []string, baseURL string) notionapi.Property {
	if len(refs) == 0 {
		return nil
	}
	return filesPropAllowEmpty(refs, baseURL)
}

// filesPropAllowEmpty is filesProp but maps an empty slice to an empty
// property, clearing the page's attachments on update.
func filesPropAllowEmpty(refs []string, baseURL string) notionapi.Property {
	prop := writeFilesProperty{Files: make([]fileRef, 0, len(refs))}
	for _, ref := range refs {
		prop.Files = append(prop.Files, toFileRef(ref, baseURL))
	}
	return prop
}

func toFileRef(ref, baseURL string) fileRef {
	if u, err := url.Parse(ref); err == nil && u.Scheme == UploadScheme {
		name := u.Query().Get("filename")
		if name == "" {
			name = u.Host
		}
		return fileRef{
			Name:       name,
			Type:       "file_upload",
			FileUpload: &fileUploadRef{ID: u.Host},
		}
	}
	return fileRef{
		Name:     path.Base(ref),
		Type:     "external",
		External: &fileExternal{URL: absoluteURL(ref, baseURL)},
	}
}

// absoluteURL resolves a relative media path (such as /uploads/...)
// against the server's public base URL; the hosted database rejects
// external files without a scheme.
func absoluteURL(ref, baseURL string) string {
	if strings.Contains(ref, "://") || baseURL == "" {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}
