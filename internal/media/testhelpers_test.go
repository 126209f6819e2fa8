package media

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"catalog-api/internal/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T) (*Pipeline, config.MediaConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := config.MediaConfig{
		UploadsDir: filepath.Join(root, "uploads"),
		TempDir:    filepath.Join(root, "tmp"),
		MaxBytes:   10 * 1024 * 1024,
		FullMax:    1024,
		ThumbMax:   300,
	}
	p, err := NewPipeline(cfg, zap.NewNop())
	require.NoError(t, err)
	return p, cfg
}

func spool(t *testing.T, p *Pipeline, data []byte, contentType string) *Upload {
	t.Helper()
	up, err := p.Spool(bytes.NewReader(data), "photo", contentType)
	require.NoError(t, err)
	return up
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
