package media

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"catalog-api/internal/media/mediatest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeFile(t *testing.T, path string) (image.Image, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, format, err := image.Decode(f)
	require.NoError(t, err)
	return img, format
}

func TestNewPipelineCreatesDirectories(t *testing.T) {
	_, cfg := newTestPipeline(t)

	for _, dir := range []string{cfg.UploadsDir, filepath.Join(cfg.UploadsDir, "thumbnails"), cfg.TempDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDerive(t *testing.T) {
	t.Run("large jpeg is bounded", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		up := spool(t, p, mediatest.JPEG(t, 2000, 1500), "image/jpeg")

		d, err := p.Derive(context.Background(), 7, up)
		require.NoError(t, err)

		assert.Equal(t, "/uploads/product_7.jpg", d.ImageURL)
		assert.Equal(t, "/uploads/thumbnails/product_7_thumb.jpg", d.ThumbnailURL)
		assert.NotEmpty(t, d.BlurHash)

		full, format := decodeFile(t, filepath.Join(cfg.UploadsDir, "product_7.jpg"))
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 1024, full.Bounds().Dx())
		assert.Equal(t, 768, full.Bounds().Dy())

		thumb, _ := decodeFile(t, filepath.Join(cfg.UploadsDir, "thumbnails", "product_7_thumb.jpg"))
		assert.Equal(t, 300, thumb.Bounds().Dx())
		assert.Equal(t, 225, thumb.Bounds().Dy())

		_, err = os.Stat(up.Path)
		assert.True(t, os.IsNotExist(err), "temporary upload must be removed")
		assert.Empty(t, dirEntries(t, cfg.TempDir))
	})

	t.Run("small png is never enlarged", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		up := spool(t, p, mediatest.PNG(t, 120, 80), "image/png")

		d, err := p.Derive(context.Background(), 3, up)
		require.NoError(t, err)
		assert.Equal(t, "/uploads/product_3.png", d.ImageURL)

		full, format := decodeFile(t, filepath.Join(cfg.UploadsDir, "product_3.png"))
		assert.Equal(t, "png", format)
		assert.Equal(t, image.Rect(0, 0, 120, 80), full.Bounds())

		thumb, _ := decodeFile(t, filepath.Join(cfg.UploadsDir, "thumbnails", "product_3_thumb.png"))
		assert.Equal(t, image.Rect(0, 0, 120, 80), thumb.Bounds())
	})

	t.Run("gif keeps its format", func(t *testing.T) {
		p, _ := newTestPipeline(t)
		up := spool(t, p, mediatest.GIF(t, 400, 400), "image/gif")

		d, err := p.Derive(context.Background(), 11, up)
		require.NoError(t, err)
		assert.Equal(t, "/uploads/product_11.gif", d.ImageURL)
		assert.Equal(t, "/uploads/thumbnails/product_11_thumb.gif", d.ThumbnailURL)
	})

	t.Run("webp is written as png", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		up := spool(t, p, mediatest.WebP, "image/webp")

		d, err := p.Derive(context.Background(), 5, up)
		require.NoError(t, err)
		assert.Equal(t, "/uploads/product_5.png", d.ImageURL)

		_, format := decodeFile(t, filepath.Join(cfg.UploadsDir, "product_5.png"))
		assert.Equal(t, "png", format)
	})

	t.Run("corrupt image leaves nothing behind", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		data := mediatest.JPEG(t, 64, 64)
		up := spool(t, p, data[:len(data)/3], "image/jpeg")

		_, err := p.Derive(context.Background(), 9, up)
		assert.ErrorIs(t, err, ErrProcessing)

		assert.Empty(t, dirEntries(t, cfg.UploadsDir))
		assert.Empty(t, dirEntries(t, filepath.Join(cfg.UploadsDir, "thumbnails")))
		assert.Empty(t, dirEntries(t, cfg.TempDir))
	})

	t.Run("cancelled context leaves nothing behind", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		up := spool(t, p, mediatest.PNG(t, 32, 32), "image/png")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Derive(ctx, 4, up)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, dirEntries(t, cfg.UploadsDir))
		assert.Empty(t, dirEntries(t, filepath.Join(cfg.UploadsDir, "thumbnails")))
		assert.Empty(t, dirEntries(t, cfg.TempDir))
	})

	t.Run("canvas above the pixel cap is never decoded", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		up := spool(t, p, mediatest.PNG(t, 200, 100), "image/png")
		p.maxPixels = 200*100 - 1

		_, err := p.Derive(context.Background(), 12, up)
		assert.ErrorIs(t, err, ErrImageTooLarge)
		assert.Empty(t, dirEntries(t, cfg.UploadsDir))
		assert.Empty(t, dirEntries(t, cfg.TempDir))
	})

	t.Run("failed thumbnail commit restores the previous pair", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		_, err := p.Derive(context.Background(), 1, spool(t, p, mediatest.JPEG(t, 400, 300), "image/jpeg"))
		require.NoError(t, err)

		fullPath := filepath.Join(cfg.UploadsDir, "product_1.jpg")
		before, err := os.ReadFile(fullPath)
		require.NoError(t, err)

		// a directory under the thumbnail name makes its rename fail
		thumbPath := filepath.Join(cfg.UploadsDir, "thumbnails", "product_1_thumb.jpg")
		require.NoError(t, os.Remove(thumbPath))
		require.NoError(t, os.MkdirAll(filepath.Join(thumbPath, "blocker"), 0755))

		_, err = p.Derive(context.Background(), 1, spool(t, p, mediatest.JPEG(t, 800, 800), "image/jpeg"))
		assert.ErrorIs(t, err, ErrProcessing)

		after, err := os.ReadFile(fullPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		assert.Equal(t, []string{"product_1.jpg"}, dirEntries(t, cfg.UploadsDir))
		assert.Empty(t, dirEntries(t, filepath.Join(cfg.UploadsDir, "thumbnails")))
		assert.Empty(t, dirEntries(t, cfg.TempDir))
	})

	t.Run("replacing a pair leaves no backups", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		for _, size := range []int{300, 500} {
			_, err := p.Derive(context.Background(), 2, spool(t, p, mediatest.PNG(t, size, size), "image/png"))
			require.NoError(t, err)
		}

		assert.Equal(t, []string{"product_2.png"}, dirEntries(t, cfg.UploadsDir))
		assert.Equal(t, []string{"product_2_thumb.png"}, dirEntries(t, filepath.Join(cfg.UploadsDir, "thumbnails")))
		full, _ := decodeFile(t, filepath.Join(cfg.UploadsDir, "product_2.png"))
		assert.Equal(t, 500, full.Bounds().Dx())
	})

	t.Run("missing thumbnail directory rolls back the full image", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		up := spool(t, p, mediatest.PNG(t, 32, 32), "image/png")
		require.NoError(t, os.RemoveAll(filepath.Join(cfg.UploadsDir, "thumbnails")))

		_, err := p.Derive(context.Background(), 8, up)
		assert.ErrorIs(t, err, ErrProcessing)
		assert.Empty(t, dirEntries(t, cfg.UploadsDir))
		assert.Empty(t, dirEntries(t, cfg.TempDir))
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes managed derivatives", func(t *testing.T) {
		p, _ := newTestPipeline(t)
		up := spool(t, p, mediatest.PNG(t, 32, 32), "image/png")
		d, err := p.Derive(context.Background(), 1, up)
		require.NoError(t, err)
		require.True(t, p.Exists(d.ImageURL))
		require.True(t, p.Exists(d.ThumbnailURL))

		p.Delete(d.ImageURL, d.ThumbnailURL)

		assert.False(t, p.Exists(d.ImageURL))
		assert.False(t, p.Exists(d.ThumbnailURL))

		// Deleting again is a no-op
		p.Delete(d.ImageURL, d.ThumbnailURL)
	})

	t.Run("ignores references outside the managed prefixes", func(t *testing.T) {
		p, cfg := newTestPipeline(t)
		outside := filepath.Join(filepath.Dir(cfg.UploadsDir), "images")
		require.NoError(t, os.MkdirAll(outside, 0755))
		asset := filepath.Join(outside, "controller.jpg")
		require.NoError(t, os.WriteFile(asset, []byte("asset"), 0644))

		p.Delete("/images/controller.jpg", "/uploads/../images/controller.jpg", "https://cdn.example.com/x.jpg", "")

		_, err := os.Stat(asset)
		assert.NoError(t, err)
	})

	t.Run("never removes the thumbnails directory", func(t *testing.T) {
		p, cfg := newTestPipeline(t)

		p.Delete("/uploads/thumbnails")

		info, err := os.Stat(filepath.Join(cfg.UploadsDir, "thumbnails"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(mediatest.Gradient(300, 200))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	again, err := ComputeBlurHash(mediatest.Gradient(300, 200))
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}
