package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/corvana/dispatch/types"
)

// fileState is the on-disk representation: the snapshot plus an explicit
// version counter incremented on every successful save.
type fileState struct {
	Version uint64                  `json:"version"`
	Workers *types.RegistrySnapshot `json:"registry"`
}

// File is a JSON-file-backed Registry for single-host deployments.
//
// Writes are atomic (temp file + rename) and versioned: Save re-reads
// the current version under an in-process lock and rejects stale writes.
// The in-process mutex serializes invocations sharing one process; the
// version check catches writers from other processes, which is the same
// optimistic guarantee the KV store gives.
type File struct {
	path    string
	mu      sync.Mutex
	metrics types.RegistryMetrics
}

// Compile-time assertion that File implements Registry.
var _ types.Registry = (*File)(nil)

// NewFile creates a file-backed registry at path.
//
// Parameters:
//   - path: JSON file location; created on first Save
//   - metrics: Collector for save conflicts, may be nil
func NewFile(path string, metrics types.RegistryMetrics) *File {
	return &File{path: path, metrics: metrics}
}

// Load reads the current snapshot and version. A missing file yields an
// empty snapshot at version 0; an unreadable file is fatal.
func (f *File) Load(_ context.Context) (*types.RegistrySnapshot, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.loadLocked()
}

func (f *File) loadLocked() (*types.RegistrySnapshot, uint64, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.NewRegistrySnapshot(), 0, nil
		}

		return nil, 0, fmt.Errorf("%w: read %s: %w", types.ErrRegistryCorrupt, f.path, err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, 0, fmt.Errorf("%w: parse %s: %w", types.ErrRegistryCorrupt, f.path, err)
	}
	if state.Workers == nil {
		state.Workers = types.NewRegistrySnapshot()
	}
	if state.Workers.Workers == nil {
		state.Workers.Workers = make(map[string]*types.WorkerProfile)
	}

	return state.Workers, state.Version, nil
}

// Save writes snapshot if the store is still at expectedVersion.
func (f *File) Save(_ context.Context, snapshot *types.RegistrySnapshot, expectedVersion uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, current, err := f.loadLocked()
	if err != nil {
		return err
	}
	if current != expectedVersion {
		if f.metrics != nil {
			f.metrics.RecordRegistrySave(true)
		}

		return fmt.Errorf("%w: have %d, expected %d", types.ErrRegistryConflict, current, expectedVersion)
	}

	data, err := json.MarshalIndent(fileState{Version: expectedVersion + 1, Workers: snapshot}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".registry-*")
	if err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("write registry: %w", err)
	}

	if f.metrics != nil {
		f.metrics.RecordRegistrySave(false)
	}

	return nil
}
