// Package persist keeps the newest pressure sample across restarts so the
// trend ring can be seeded on the next start.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/orrery/model"
)

const formatVersion = 1

type document struct {
	Version int                  `json:"version"`
	SavedAt time.Time            `json:"saved_at"`
	Sample  model.PressureSample `json:"sample"`
}

// LastSampleStore reads and writes a single sample as JSON at Path.
type LastSampleStore struct {
	Path string
}

// Save writes s atomically: a temp file in the same directory is renamed
// over Path.
func (st LastSampleStore) Save(s model.PressureSample) error {
	if st.Path == "" {
		return errors.New("persist: empty path")
	}
	raw, err := json.Marshal(document{Version: formatVersion, SavedAt: time.Now().UTC(), Sample: s})
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}

	dir := filepath.Dir(st.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".lastsample-*")
	if err != nil {
		return fmt.Errorf("persist: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persist: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), st.Path); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}
	return nil
}

// Load returns the stored sample. ok is false when nothing has been saved.
func (st LastSampleStore) Load() (s model.PressureSample, ok bool, err error) {
	raw, err := os.ReadFile(st.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.PressureSample{}, false, nil
	}
	if err != nil {
		return model.PressureSample{}, false, fmt.Errorf("persist: read: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.PressureSample{}, false, fmt.Errorf("persist: decode %s: %w", st.Path, err)
	}
	if doc.Version != formatVersion {
		return model.PressureSample{}, false, fmt.Errorf("persist: unsupported version %d", doc.Version)
	}
	return doc.Sample, true, nil
}
