// Package upload accepts media files attached to moments. A Sink
// stores validated file bytes somewhere durable and hands back a media
// reference the document store understands; validation rejects
// oversized files, disallowed extensions and image payloads that do
// not decode as images.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var (
	// ErrTooLarge is returned when a file exceeds the configured size cap.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned for disallowed extensions or image
	// payloads that do not decode.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Kind distinguishes the two media categories a moment can carry.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Result describes a stored file.
type Result struct {
	// Ref is the media reference to attach to a moment: a /uploads/
	// path for the disk sink, an upload reference for the hosted sink.
	Ref  string `json:"ref"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type Kind   `json:"type"`
	// Width and Height are pixel dimensions, zero for videos.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Sink stores validated media bytes.
type Sink interface {
	Store(ctx context.Context, kind Kind, filename, contentType string, data []byte) (*Result, error)
}

// Limits validates uploads before they reach a sink.
type Limits struct {
	MaxBytes  int64
	ImageExts []string
	VideoExts []string
}

// Check validates one upload. Image payloads must decode with one of
// the registered image formats; videos are checked by extension and
// size only.
func (l Limits) Check(kind Kind, filename string, data []byte) error {
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return fmt.Errorf("%s is %d bytes: %w", filename, len(data), ErrTooLarge)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty: %w", filename, ErrUnsupportedType)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch kind {
	case KindImage:
		if !contains(l.ImageExts, ext) {
			return fmt.Errorf("image extension %q: %w", ext, ErrUnsupportedType)
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%s does not decode as an image: %w", filename, ErrUnsupportedType)
		}
	case KindVideo:
		if !contains(l.VideoExts, ext) {
			return fmt.Errorf("video extension %q: %w", ext, ErrUnsupportedType)
		}
	default:
		return fmt.Errorf("kind %q: %w", kind, ErrUnsupportedType)
	}
	return nil
}

// imageDims returns the pixel dimensions of an image payload, or
// zeroes when it does not decode. Sinks call it after Check has
// already established the payload decodes.
func imageDims(data []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
