package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	// ErrUnsupportedType is returned for files outside the allowed
	// extension list.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge is returned for files over the size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// DefaultMaxFileSize matches the Vision API input limit.
const DefaultMaxFileSize = 10 * 1024 * 1024

// DefaultExtensions returns the file types accepted by default.
func DefaultExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg"}
}

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tiff": "image/tiff",
	".gif":  "image/gif",
}

// FileInfo describes a validated input file.
type FileInfo struct {
	Path      string
	Name      string
	Extension string
	Size      int64
	MimeType  string
	PageCount int // PDFs only, 0 otherwise
}

// Validator checks input files before they are staged for OCR.
// The zero value accepts the default extensions up to DefaultMaxFileSize.
type Validator struct {
	AllowedExtensions []string
	MaxFileSize       int64
}

// Validate checks the file at path against the extension and size
// limits and returns its metadata. PDF inputs also get a page count.
func (v *Validator) Validate(path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedType, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !v.allowed(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if max := v.maxSize(); info.Size() > max {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, info.Size(), max)
	}

	fi := &FileInfo{
		Path:      path,
		Name:      filepath.Base(path),
		Extension: ext,
		Size:      info.Size(),
		MimeType:  mimeTypes[ext],
	}

	if ext == ".pdf" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		count, err := api.PageCount(f, nil)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read pdf page count: %w", err)
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: pdf has no pages", ErrUnsupportedType)
		}
		fi.PageCount = count
	}

	return fi, nil
}

func (v *Validator) allowed(ext string) bool {
	allowed := v.AllowedExtensions
	if len(allowed) == 0 {
		allowed = DefaultExtensions()
	}
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func (v *Validator) maxSize() int64 {
	if v.MaxFileSize > 0 {
		return v.MaxFileSize
	}
	return DefaultMaxFileSize
}
