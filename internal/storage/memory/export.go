// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/twinlayout/sceneedit/internal/storage"
	v1 "github.com/twinlayout/sceneedit/internal/storage/memory/export/v1"
	"github.com/twinlayout/sceneedit/pkg/core"
)

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

// exportFileName maps a scene id to its export file name.
func exportFileName(id string, compress bool) string {
	name := fileNameReplacer.Replace(id)
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// exportJSON writes the scene to its export file. Called with b.mu held.
func (b *Backend) exportJSON(s *core.Scene) error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(s.ID, b.cfg.CompressOutput))
	export := v1.Build(s)

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = storage.Metadata(s, "")
	return nil
}

// readExport loads a scene from whichever export file exists for id.
func (b *Backend) readExport(id string) (*core.Scene, error) {
	for _, compress := range []bool{true, false} {
		path := filepath.Join(b.cfg.OutputDir, exportFileName(id, compress))
		export, err := readExportFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return export.Scene()
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrSceneNotFound, id)
}

// removeExport deletes both export variants for id.
func (b *Backend) removeExport(id string) (bool, error) {
	removed := false
	for _, compress := range []bool{true, false} {
		path := filepath.Join(b.cfg.OutputDir, exportFileName(id, compress))
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, os.ErrNotExist):
		default:
			return removed, fmt.Errorf("failed to remove export: %w", err)
		}
	}
	return removed, nil
}

// exportedIDs reads the scene id out of every export file in the output directory.
func (b *Backend) exportedIDs() ([]string, error) {
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			continue
		}
		export, err := readExportFile(filepath.Join(b.cfg.OutputDir, name))
		if err != nil || export.ID == "" {
			continue
		}
		ids = append(ids, export.ID)
	}
	return ids, nil
}

func readExportFile(path string) (v1.Export, error) {
	var export v1.Export

	f, err := os.Open(path)
	if err != nil {
		return export, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return export, nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
