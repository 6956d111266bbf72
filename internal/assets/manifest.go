package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// Manifest records the files written by one build.
type Manifest struct {
	BuildID   string           `json:"buildId"`
	CreatedAt time.Time        `json:"createdAt"`
	Outputs   []ManifestOutput `json:"outputs"`
}

// ManifestOutput describes one output file. Checksum is the base58 encoded
// CRC-64/NVME of the file contents.
type ManifestOutput struct {
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
	Checksum string `json:"checksum"`
	Entry    string `json:"entry,omitempty"`
}

// Checksum returns the base58 encoded CRC-64/NVME of data.
func Checksum(data []byte) string {
	h := crc64nvme.New()
	_, _ = h.Write(data)
	return base58.Encode(h.Sum(nil))
}

func newManifest(outDir string, files map[string][]byte, entries map[string]string) *Manifest {
	m := &Manifest{
		BuildID:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	for path, contents := range files {
		rel, err := filepath.Rel(outDir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		m.Outputs = append(m.Outputs, ManifestOutput{
			Path:     rel,
			Bytes:    len(contents),
			Checksum: Checksum(contents),
			Entry:    entries[rel],
		})
	}

	slices.SortFunc(m.Outputs, func(a, b ManifestOutput) int {
		return strings.Compare(a.Path, b.Path)
	})
	return m
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
