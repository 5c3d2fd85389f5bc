package forecast

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"MarketPulse/internal/domain/models"
)

// FSModelStore keeps serialized pipelines as JSON files under a directory,
// one file per (ticker, horizon kind) key.
type FSModelStore struct {
	dir string
}

// NewFSModelStore returns a store rooted at dir. The directory is created
// lazily on the first Save.
func NewFSModelStore(dir string) *FSModelStore {
	return &FSModelStore{dir: dir}
}

func (s *FSModelStore) Load(ticker, kind string) ([]byte, error) {
	data, err := os.ReadFile(s.path(ticker, kind))
	if os.IsNotExist(err) {
		return nil, models.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return data, nil
}

// Save writes the artifact through a temp file and rename so a concurrent
// Load never observes a partial write.
func (s *FSModelStore) Save(ticker, kind string, artifact []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	path := s.path(ticker, kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, artifact, 0o644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit model artifact: %w", err)
	}
	return nil
}

func (s *FSModelStore) path(ticker, kind string) string {
	name := fmt.Sprintf("%s_%s.json", sanitize(ticker), sanitize(kind))
	return filepath.Join(s.dir, name)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
