// Package media turns uploaded product photos into stored derivatives.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrImageTooLarge   = errors.New("image dimensions too large")
	ErrProcessing      = errors.New("image processing failed")
)

// AllowedTypes lists the content types accepted for product images
var AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// IsAllowedType reports whether a declared content type is accepted.
// Parameters such as charset are ignored.
func IsAllowedType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	for _, allowed := range AllowedTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// Upload is a spooled image waiting to be derived
type Upload struct {
	Path        string
	Filename    string
	ContentType string // sniffed from the content, not the declared type
	Size        int64
}

// Remove deletes the temporary file. Calling it more than once is fine.
func (u *Upload) Remove() error {
	if u == nil || u.Path == "" {
		return nil
	}
	if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	return nil
}

// Discard removes the temporary file and logs when that fails
func (u *Upload) Discard(logger *zap.Logger) {
	if err := u.Remove(); err != nil {
		logger.Warn("Failed to remove temporary upload", zap.String("path", u.Path), zap.Error(err))
	}
}

// Spool buffers an uploaded image and writes it to the temp directory.
// Size and type checks happen on the in-memory buffer so a rejected upload
// never leaves a file behind.
func (p *Pipeline) Spool(r io.Reader, filename, declaredType string) (*Upload, error) {
	if !IsAllowedType(declaredType) {
		return nil, ErrUnsupportedType
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if n > p.maxBytes {
		return nil, ErrFileTooLarge
	}
	if n == 0 {
		return nil, ErrUnsupportedType
	}

	detected := mimetype.Detect(buf.Bytes())
	if !mimetype.EqualsAny(detected.String(), AllowedTypes...) {
		return nil, ErrUnsupportedType
	}

	// An unreadable header is left for Derive to report as a processing error
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes())); err == nil {
		if err := p.checkDimensions(cfg); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(p.tempDir, "upload-"+uuid.NewString())
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &Upload{
		Path:        path,
		Filename:    filename,
		ContentType: detected.String(),
		Size:        n,
	}, nil
}

// checkDimensions rejects canvases above the pixel cap so they are never decoded
func (p *Pipeline) checkDimensions(cfg image.Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty canvas %dx%d", ErrProcessing, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, p.maxPixels)
	}
	return nil
}
