package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"catalog-api/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Public URL prefixes of stored derivatives
const (
	FullURLPrefix  = "/uploads/"
	ThumbURLPrefix = "/uploads/thumbnails/"
)

// DefaultMaxPixels caps the decoded canvas when the configuration leaves it unset
const DefaultMaxPixels = 50_000_000

var tracer = otel.Tracer("catalog-api/media")

// Derivatives are the stored variants of one product image
type Derivatives struct {
	ImageURL     string
	ThumbnailURL string
	BlurHash     string
}

// Pipeline spools uploads, derives full and thumbnail images, and deletes them again
type Pipeline struct {
	full      *Storage
	thumbs    *Storage
	tempDir   string
	maxBytes  int64
	maxPixels int64
	fullMax   int
	thumbMax  int
	logger    *zap.Logger
}

// NewPipeline prepares the upload, thumbnail and temp directories
func NewPipeline(cfg config.MediaConfig, logger *zap.Logger) (*Pipeline, error) {
	full, err := NewStorage(cfg.UploadsDir, FullURLPrefix)
	if err != nil {
		return nil, err
	}
	thumbs, err := NewStorage(filepath.Join(cfg.UploadsDir, "thumbnails"), ThumbURLPrefix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload temp directory: %w", err)
	}

	if cfg.MaxBytes <= 0 || cfg.FullMax <= 0 || cfg.ThumbMax <= 0 {
		return nil, fmt.Errorf("media limits must be positive")
	}

	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	return &Pipeline{
		full:      full,
		thumbs:    thumbs,
		tempDir:   cfg.TempDir,
		maxBytes:  cfg.MaxBytes,
		maxPixels: maxPixels,
		fullMax:   cfg.FullMax,
		thumbMax:  cfg.ThumbMax,
		logger:    logger,
	}, nil
}

// UploadsDir is the directory served under FullURLPrefix
func (p *Pipeline) UploadsDir() string {
	return p.full.Dir()
}

// MaxPixels is the largest accepted canvas, width times height
func (p *Pipeline) MaxPixels() int64 {
	return p.maxPixels
}

// MaxBytes is the largest accepted upload
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

// Derive decodes the upload and stores product_<id> and product_<id>_thumb.
// Either both files are replaced or neither is. The upload is always removed.
func (p *Pipeline) Derive(ctx context.Context, productID int64, upload *Upload) (d Derivatives, err error) {
	ctx, span := tracer.Start(ctx, "media.Derive")
	span.SetAttributes(attribute.Int64("product.id", productID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	defer upload.Discard(p.logger)

	f, err := os.Open(upload.Path)
	if err != nil {
		return Derivatives{}, fmt.Errorf("%w: open upload: %v", ErrProcessing, err)
	}
	defer f.Close()

	header, _, err := image.DecodeConfig(f)
	if err != nil {
		return Derivatives{}, fmt.Errorf("%w: read image header: %v", ErrProcessing, err)
	}
	if err := p.checkDimensions(header); err != nil {
		return Derivatives{}, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Derivatives{}, fmt.Errorf("%w: rewind upload: %v", ErrProcessing, err)
	}

	img, format, err := image.Decode(f)
	if err != nil {
		return Derivatives{}, fmt.Errorf("%w: decode image: %v", ErrProcessing, err)
	}

	enc, err := encoderFor(format)
	if err != nil {
		return Derivatives{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	if err := ctx.Err(); err != nil {
		return Derivatives{}, err
	}

	fullImg := Resize(img, p.fullMax)
	thumbImg := Resize(img, p.thumbMax)

	fullName := fmt.Sprintf("product_%d%s", productID, enc.ext)
	thumbName := fmt.Sprintf("product_%d_thumb%s", productID, enc.ext)

	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				p.logger.Warn("Failed to remove partial derivative", zap.String("path", path), zap.Error(rmErr))
			}
		}
	}()

	fullStaged, err := p.stage(p.full, fullName, enc, fullImg)
	if fullStaged != "" {
		written = append(written, fullStaged)
	}
	if err != nil {
		return Derivatives{}, err
	}
	thumbStaged, err := p.stage(p.thumbs, thumbName, enc, thumbImg)
	if thumbStaged != "" {
		written = append(written, thumbStaged)
	}
	if err != nil {
		return Derivatives{}, err
	}

	hash, err := ComputeBlurHash(thumbImg)
	if err != nil {
		return Derivatives{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	if err := ctx.Err(); err != nil {
		return Derivatives{}, err
	}

	fullCommit, err := p.full.Commit(fullStaged, fullName)
	if err != nil {
		return Derivatives{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	thumbCommit, err := p.thumbs.Commit(thumbStaged, thumbName)
	if err != nil {
		if rbErr := fullCommit.Rollback(); rbErr != nil {
			p.logger.Error("Failed to restore previous image", zap.String("name", fullName), zap.Error(rbErr))
		}
		return Derivatives{}, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	for _, c := range []*Replacement{fullCommit, thumbCommit} {
		if err := c.Finish(); err != nil {
			p.logger.Warn("Failed to remove replaced image", zap.Error(err))
		}
	}

	bounds := img.Bounds()
	p.logger.Debug("Derived product image",
		zap.Int64("product_id", productID),
		zap.String("format", format),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()),
	)

	return Derivatives{
		ImageURL:     p.full.URL(fullName),
		ThumbnailURL: p.thumbs.URL(thumbName),
		BlurHash:     hash,
	}, nil
}

// stage encodes img into a hidden file beside name. The staged path is returned
// even on failure so the caller can clean it up.
func (p *Pipeline) stage(s *Storage, name string, enc encoder, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := enc.encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: encode %s: %v", ErrProcessing, name, err)
	}

	f, err := s.Stage(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	path := f.Name()

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return path, fmt.Errorf("%w: write %s: %v", ErrProcessing, name, err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("%w: close %s: %v", ErrProcessing, name, err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		return path, fmt.Errorf("%w: chmod %s: %v", ErrProcessing, name, err)
	}
	return path, nil
}

// Delete removes stored derivatives by public reference. References outside the
// managed prefixes, such as bundled /images assets, are ignored. Failures are
// logged and never returned.
func (p *Pipeline) Delete(refs ...string) {
	for _, ref := range refs {
		storage, name, ok := p.resolve(ref)
		if !ok {
			p.logger.Debug("Skipping unmanaged image reference", zap.String("ref", ref))
			continue
		}
		if err := storage.Delete(name); err != nil {
			p.logger.Warn("Failed to delete derivative", zap.String("ref", ref), zap.Error(err))
		}
	}
}

// Exists reports whether a managed reference has a file behind it
func (p *Pipeline) Exists(ref string) bool {
	storage, name, ok := p.resolve(ref)
	return ok && storage.Exists(name)
}

func (p *Pipeline) resolve(ref string) (*Storage, string, bool) {
	if name, ok := p.thumbs.NameFromURL(ref); ok {
		return p.thumbs, name, true
	}
	if name, ok := p.full.NameFromURL(ref); ok {
		return p.full, name, true
	}
	return nil, "", false
}
