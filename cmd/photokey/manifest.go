package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/project"
)

// manifest is the on-disk project description read by every command.
type manifest struct {
	ID     string                 `json:"id"`
	Floors []manifestFloor        `json:"floors"`
	Items  []project.ImportRecord `json:"items"`
}

type manifestFloor struct {
	ID        string              `json:"id"`
	Floorplan string              `json:"floorplan,omitempty"`
	Frame     *geo.ReferenceFrame `json:"frame,omitempty"`
}

// loadManifest reads a manifest and builds the project. Floorplan paths are
// resolved against the manifest's directory.
func loadManifest(path string) (*project.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s has no project id", path)
	}

	p := project.New(m.ID)
	dir := filepath.Dir(path)
	for _, mf := range m.Floors {
		if err := project.ValidateFloorID(mf.ID); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		f := p.AddFloor(mf.ID)
		if mf.Floorplan == "" {
			continue
		}
		src := geo.ImageRef(absFrom(dir, mf.Floorplan))
		f.AttachFloorplan(src)
		if mf.Frame != nil {
			frame := *mf.Frame
			frame.Source = src
			if err := f.CommitFrame(frame); err != nil {
				return nil, err
			}
		}
	}

	if err := p.Import(m.Items); err != nil {
		Logger.Warn("Skipped invalid manifest items", "manifest", path, "error", err)
	}
	return p, nil
}
