// Package fixtures loads static journey content shipped as JSON files.
//
// Each *.json file holds either an array of raw block records or a single
// record. Records that fail conversion are reported and skipped; the rest
// of the batch still loads.
package fixtures

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"stepjourney/internal/domain"
	"stepjourney/internal/logger"
)

// LoadFile parses one fixture file.
func LoadFile(path string) ([]domain.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	raws, err := decodeRaw(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	blocks, err := domain.ToBlocks(raws)
	if err != nil {
		err = fmt.Errorf("fixture %s: %w", filepath.Base(path), err)
	}
	return blocks, err
}

func decodeRaw(data []byte) ([]domain.RawBlock, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var raws []domain.RawBlock
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	var raw domain.RawBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return []domain.RawBlock{raw}, nil
}

// LoadDir loads every *.json file in dir in name order. A later file
// overrides an earlier one for the same block id. The returned error joins
// every per-file and per-record failure.
func LoadDir(dir string) ([]domain.Block, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	byID := map[string]int{}
	var out []domain.Block
	var errs []error
	for _, p := range paths {
		blocks, err := LoadFile(p)
		if err != nil {
			errs = append(errs, err)
		}
		for _, b := range blocks {
			if i, ok := byID[b.ID]; ok {
				out[i] = b
				continue
			}
			byID[b.ID] = len(out)
			out = append(out, b)
		}
	}
	return out, errors.Join(errs...)
}

// Set is a reloadable in-memory copy of a fixture directory.
type Set struct {
	dir string
	log *logger.Logger

	mu     sync.RWMutex
	blocks []domain.Block
}

func NewSet(dir string, log *logger.Logger) *Set {
	if log == nil {
		log = logger.Nop()
	}
	return &Set{dir: dir, log: log}
}

func (s *Set) Dir() string { return s.dir }

// Reload rereads the directory. Partial failures are logged and the
// loaded blocks still replace the previous set; a missing directory
// yields an empty set.
func (s *Set) Reload() error {
	if strings.TrimSpace(s.dir) == "" {
		return nil
	}
	if _, err := os.Stat(s.dir); errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.blocks = nil
		s.mu.Unlock()
		return nil
	}
	blocks, err := LoadDir(s.dir)
	if err != nil {
		s.log.Warn("fixture load incomplete", "dir", s.dir, "error", err)
	}
	s.mu.Lock()
	s.blocks = blocks
	s.mu.Unlock()
	s.log.Debug("fixtures loaded", "dir", s.dir, "blocks", len(blocks))
	return err
}

// Blocks returns a copy of the loaded blocks.
func (s *Set) Blocks() []domain.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = b.Clone()
	}
	return out
}
