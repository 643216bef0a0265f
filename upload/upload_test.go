package upload

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func testLimits() Limits {
	return Limits{
		MaxBytes:  1 << 20,
		ImageExts: []string{"jpg", "jpeg", "png", "gif", "webp"},
		VideoExts: []string{"mp4", "mov"},
	}
}

func TestCheckValidImage(t *testing.T) {
	assert.NoError(t, testLimits().Check(KindImage, "photo.png", pngBytes(t)))
	assert.NoError(t, testLimits().Check(KindImage, "PHOTO.PNG", pngBytes(t)))
}

func TestCheckRejectsOversized(t *testing.T) {
	l := testLimits()
	l.MaxBytes = 16
	err := l.Check(KindImage, "photo.png", pngBytes(t))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCheckRejectsBadExtension(t *testing.T) {
	err := testLimits().Check(KindImage, "payload.exe", pngBytes(t))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	err = testLimits().Check(KindVideo, "clip.webm", []byte("data"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCheckRejectsNonImagePayload(t *testing.T) {
	err := testLimits().Check(KindImage, "fake.png", []byte("<html>not an image</html>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCheckRejectsEmpty(t *testing.T) {
	err := testLimits().Check(KindVideo, "clip.mp4", nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestCheckVideoByExtensionOnly(t *testing.T) {
	// Video payloads are not sniffed.
	assert.NoError(t, testLimits().Check(KindVideo, "clip.mp4", []byte("not really a video")))
}

func TestDiskSinkStoresImage(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir)
	require.NoError(t, err)

	data := pngBytes(t)
	res, err := sink.Store(context.Background(), KindImage, "holiday.png", "image/png", data)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Ref, "/uploads/images/"), "ref %q", res.Ref)
	assert.True(t, strings.HasSuffix(res.Ref, ".png"), "ref %q", res.Ref)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, KindImage, res.Type)
	assert.Equal(t, 2, res.Width)
	assert.Equal(t, 2, res.Height)

	stored, err := os.ReadFile(filepath.Join(dir, "images", res.Name))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestDiskSinkStoresVideoUnderVideos(t *testing.T) {
	sink, err := NewDiskSink(t.TempDir())
	require.NoError(t, err)

	res, err := sink.Store(context.Background(), KindVideo, "clip.mp4", "video/mp4", []byte("bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Ref, "/uploads/videos/"), "ref %q", res.Ref)
	assert.Equal(t, KindVideo, res.Type)
	assert.Zero(t, res.Width)
	assert.Zero(t, res.Height)
}

func TestDiskSinkRandomizesNames(t *testing.T) {
	sink, err := NewDiskSink(t.TempDir())
	require.NoError(t, err)

	a, err := sink.Store(context.Background(), KindImage, "same.png", "image/png", pngBytes(t))
	require.NoError(t, err)
	b, err := sink.Store(context.Background(), KindImage, "same.png", "image/png", pngBytes(t))
	require.NoError(t, err)
	assert.NotEqual(t, a.Ref, b.Ref)
}
