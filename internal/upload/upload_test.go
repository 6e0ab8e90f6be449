package upload

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tcases := []struct {
		name     string
		class    Class
		mimeType string
		ext      string
		expected bool
	}{
		{
			name:     "image for profile",
			class:    ClassProfileImage,
			mimeType: "image/png",
			ext:      ".png",
			expected: true,
		},
		{
			name:     "pdf for profile",
			class:    ClassProfileImage,
			mimeType: "application/pdf",
			ext:      ".pdf",
			expected: false,
		},
		{
			name:     "image for chat",
			class:    ClassChatAttachment,
			mimeType: "image/jpeg",
			ext:      ".jpg",
			expected: true,
		},
		{
			name:     "audio for chat",
			class:    ClassChatAttachment,
			mimeType: "audio/webm",
			ext:      ".webm",
			expected: true,
		},
		{
			name:     "video for chat",
			class:    ClassChatAttachment,
			mimeType: "video/mp4",
			ext:      ".mp4",
			expected: true,
		},
		{
			name:     "zip for chat",
			class:    ClassChatAttachment,
			mimeType: "application/zip",
			ext:      ".zip",
			expected: false,
		},
		{
			name:     "pdf document",
			class:    ClassDocument,
			mimeType: "application/pdf",
			ext:      ".pdf",
			expected: true,
		},
		{
			name:     "document mime with wrong extension",
			class:    ClassDocument,
			mimeType: "application/pdf",
			ext:      ".zip",
			expected: false,
		},
		{
			name:     "document extension with wrong mime",
			class:    ClassDocument,
			mimeType: "application/zip",
			ext:      ".pdf",
			expected: false,
		},
		{
			name:     "unknown class",
			class:    Class("archive"),
			mimeType: "application/zip",
			ext:      ".zip",
			expected: false,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Validate(tc.class, tc.mimeType, tc.ext))
		})
	}
}

func TestNewStore(t *testing.T) {
	baseDir := t.TempDir()
	_, err := NewStore(baseDir, testutil.TestLogger(t))
	assert.NoError(t, err)

	for _, dir := range []string{"profiles", "chat", "documents"} {
		info, err := os.Stat(filepath.Join(baseDir, dir))
		assert.NoError(t, err, "expected %q to exist", dir)
		assert.True(t, info.IsDir())
	}
}

func TestSave(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewStore(baseDir, testutil.TestLogger(t))
	assert.NoError(t, err)

	t.Run("stores file and returns reference path", func(t *testing.T) {
		content := []byte("voice note bytes")
		path, err := store.Save(ClassChatAttachment, bytes.NewReader(content), "note.webm")
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(path, "/uploads/chat/"), "expected chat reference path, got %q", path)
		assert.True(t, strings.HasSuffix(path, ".webm"), "expected original extension to be kept, got %q", path)

		stored, err := os.ReadFile(filepath.Join(baseDir, "chat", filepath.Base(path)))
		assert.NoError(t, err)
		assert.Equal(t, content, stored)
	})

	t.Run("generated names do not collide", func(t *testing.T) {
		first, err := store.Save(ClassChatAttachment, strings.NewReader("a"), "photo.png")
		assert.NoError(t, err)
		second, err := store.Save(ClassChatAttachment, strings.NewReader("b"), "photo.png")
		assert.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("rejects unknown class", func(t *testing.T) {
		_, err := store.Save(Class("archive"), strings.NewReader("x"), "x.zip")
		assert.ErrorIs(t, err, ErrUnsupportedMediaType)
	})

	t.Run("rejects oversized upload", func(t *testing.T) {
		oversized := &repeatReader{b: 'x', n: MaxFileSize + 1}
		_, err := store.Save(ClassChatAttachment, oversized, "big.mp4")
		assert.ErrorIs(t, err, ErrPayloadTooLarge)

		entries, err := os.ReadDir(filepath.Join(baseDir, "chat"))
		assert.NoError(t, err)
		for _, e := range entries {
			info, err := e.Info()
			assert.NoError(t, err)
			assert.LessOrEqual(t, info.Size(), int64(MaxFileSize), "oversized file %q was retained", e.Name())
		}
	})
}

// repeatReader produces n copies of b without allocating the whole
// payload.
type repeatReader struct {
	b byte
	n int64
}

func (r *repeatReader) Read(p []byte) (int, error) {
	if r.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.n {
		p = p[:r.n]
	}
	for i := range p {
		p[i] = r.b
	}
	r.n -= int64(len(p))
	return len(p), nil
}
