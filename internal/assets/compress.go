package assets

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var precompressExtensions = map[string]bool{
	".js":  true,
	".css": true,
}

// precompress writes .gz and .zst siblings for scripts and stylesheets and
// returns the paths written.
func precompress(files map[string][]byte) ([]string, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()

	var written []string
	for path, contents := range files {
		if !precompressExtensions[filepath.Ext(path)] {
			continue
		}

		var buf bytes.Buffer
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return written, err
		}
		if _, err := zw.Write(contents); err != nil {
			return written, err
		}
		if err := zw.Close(); err != nil {
			return written, err
		}
		if err := os.WriteFile(path+".gz", buf.Bytes(), 0600); err != nil {
			return written, fmt.Errorf("failed to write %s.gz: %w", path, err)
		}

		if err := os.WriteFile(path+".zst", enc.EncodeAll(contents, nil), 0600); err != nil {
			return written, fmt.Errorf("failed to write %s.zst: %w", path, err)
		}
		written = append(written, path+".gz", path+".zst")
	}
	return written, nil
}
