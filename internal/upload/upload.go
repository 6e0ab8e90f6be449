package upload

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxFileSize is the upload ceiling, large enough for short videos.
const MaxFileSize = 50 << 20

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
)

// Class is the usage class of an upload, which decides both the
// accepted media types and the storage subdirectory.
type Class string

const (
	ClassProfileImage   Class = "profile-image"
	ClassChatAttachment Class = "chat-attachment"
	ClassDocument       Class = "document"
)

var classDirs = map[Class]string{
	ClassProfileImage:   "profiles",
	ClassChatAttachment: "chat",
	ClassDocument:       "documents",
}

var documentTypes = []string{"pdf", "ppt", "pptx", "doc", "docx"}

// Validate reports whether a mime type and filename extension are
// acceptable for the class. Unknown classes and unrecognized types are
// rejected.
func Validate(class Class, mimeType, ext string) bool {
	mimeType = strings.ToLower(mimeType)
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	switch class {
	case ClassProfileImage:
		return strings.HasPrefix(mimeType, "image/")
	case ClassChatAttachment:
		return strings.HasPrefix(mimeType, "image/") ||
			strings.HasPrefix(mimeType, "audio/") ||
			strings.HasPrefix(mimeType, "video/")
	case ClassDocument:
		// extension and mime type must both look like a document
		extOk := false
		for _, t := range documentTypes {
			if ext == t {
				extOk = true
				break
			}
		}
		if !extOk {
			return false
		}
		for _, t := range documentTypes {
			if strings.Contains(mimeType, t) {
				return true
			}
		}
		return false
	}

	return false
}

// Store writes uploads under a base directory with one subdirectory
// per usage class, and hands out reference paths of the form
// /uploads/<dir>/<generated-name>. It owns file naming and layout;
// messages referencing an upload own only the path string.
type Store struct {
	baseDir string
	log     *log.Logger
}

func NewStore(baseDir string, logger *log.Logger) (*Store, error) {
	for _, dir := range classDirs {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}

	return &Store{baseDir: baseDir, log: logger}, nil
}

// Save streams the upload to disk and returns its reference path. The
// caller is expected to have validated the media type; Save still
// enforces the size ceiling and fails before anything is retained.
func (s *Store) Save(class Class, r io.Reader, originalName string) (string, error) {
	dir, ok := classDirs[class]
	if !ok {
		return "", ErrUnsupportedMediaType
	}

	name := generateName(class, originalName)
	dest := filepath.Join(s.baseDir, dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	// read one byte past the ceiling to detect oversized uploads
	n, err := io.Copy(f, io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write file: %w", err)
	}
	if n > MaxFileSize {
		os.Remove(dest)
		return "", ErrPayloadTooLarge
	}

	s.log.Printf("stored %s upload %q (%d bytes)", class, name, n)

	return "/uploads/" + dir + "/" + name, nil
}

// generateName builds a collision-resistant filename: class prefix,
// timestamp, random suffix and the original extension.
func generateName(class Class, originalName string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%d-%s%s", class, time.Now().UnixNano(), suffix, strings.ToLower(filepath.Ext(originalName)))
}
