// Package production provides production integrations: persistence, event publishing,
// visualization, an in-memory run registry and Prometheus metrics.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/comalice/tapemachine/internal/core"
)

// JSONPersister is a file-based persister using JSON serialization, one file per run.
type JSONPersister struct {
	dir string
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONPersister{dir: dir}, nil
}

func (p *JSONPersister) Save(ctx context.Context, rec core.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return writeAtomic(filepath.Join(p.dir, rec.ID+".json"), data)
}

func (p *JSONPersister) Load(ctx context.Context, runID string) (core.Record, error) {
	data, err := readRecord(filepath.Join(p.dir, runID+".json"), runID)
	if err != nil {
		return core.Record{}, err
	}

	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.Record{}, fmt.Errorf("json unmarshal: %w", err)
	}
	rec.ID = runID // Ensure ID
	return rec, nil
}

// YAMLPersister is a file-based persister using YAML serialization, one file per run.
type YAMLPersister struct {
	dir string
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLPersister{dir: dir}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, rec core.Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return writeAtomic(filepath.Join(p.dir, rec.ID+".yaml"), data)
}

func (p *YAMLPersister) Load(ctx context.Context, runID string) (core.Record, error) {
	data, err := readRecord(filepath.Join(p.dir, runID+".yaml"), runID)
	if err != nil {
		return core.Record{}, err
	}

	var rec core.Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return core.Record{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	rec.ID = runID // Ensure ID
	return rec, nil
}

// NewPersister returns the persister for format ("json" or "yaml").
func NewPersister(format, dir string) (core.Persister, error) {
	switch format {
	case "json", "":
		return NewJSONPersister(dir)
	case "yaml":
		return NewYAMLPersister(dir)
	}
	return nil, fmt.Errorf("unknown record format %q", format)
}

// writeAtomic writes data via renameio: temp file, fsync, rename.
func writeAtomic(fn string, data []byte) error {
	pending, err := renameio.NewPendingFile(fn, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", fn, err)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op after a successful replace

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", fn, err)
	}
	return nil
}

func readRecord(fn, runID string) ([]byte, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("run %q: %w: %w", runID, core.ErrNotFound, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}
