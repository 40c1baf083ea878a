// Package export captures every aligned floor of a project and assembles the
// images, numbers and marker positions a report is built from.
package export

import (
	"bytes"
	"cmp"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/disintegration/imaging"

	"github.com/photokey/floorplan/internal/capture"
	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
	"github.com/photokey/floorplan/internal/numbering"
	"github.com/photokey/floorplan/internal/project"
	"github.com/photokey/floorplan/internal/projection"
)

// PlaceholderLabel is drawn on units whose capture failed.
const PlaceholderLabel = "No image"

// Unit is one exported image.
type Unit struct {
	PNG         []byte `json:"-"`
	OK          bool   `json:"ok"`
	Diagnostic  string `json:"diagnostic,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

// Base64 returns the PNG as standard base64.
func (u Unit) Base64() string {
	return base64.StdEncoding.EncodeToString(u.PNG)
}

// MarkerEntry is one numbered marker. Position is nil when the marker's floor
// has no usable frame.
type MarkerEntry struct {
	Number     int                  `json:"number"`
	ItemID     string               `json:"itemId"`
	FloorID    string               `json:"floorId"`
	Heading    *float64             `json:"heading,omitempty"`
	Coordinate geo.Coordinate       `json:"coordinate"`
	Position   *projection.Position `json:"position,omitempty"`
}

// Bundle is everything report assembly needs. Floors is keyed by floor id,
// Items by item id.
type Bundle struct {
	Floors  map[string]Unit `json:"floors"`
	Items   map[string]Unit `json:"items"`
	Markers []MarkerEntry   `json:"markers"`
}

// ImageResolver opens the image behind a floorplan reference.
type ImageResolver func(ref geo.ImageRef) capture.ImageSource

// FileResolver treats references as file paths.
func FileResolver(ref geo.ImageRef) capture.ImageSource {
	return capture.FileSource(ref)
}

// Options tunes an export.
type Options struct {
	CloseUps          bool
	PlaceholderWidth  int
	PlaceholderHeight int
}

// DefaultOptions returns the stock export settings.
func DefaultOptions() Options {
	return Options{CloseUps: true, PlaceholderWidth: 400, PlaceholderHeight: 300}
}

// Exporter runs project exports through a capture pipeline.
type Exporter struct {
	pipeline *capture.Pipeline
	renderer *marker.Renderer
	resolve  ImageResolver
	opts     Options
	log      *slog.Logger
}

// New creates an exporter. A nil resolver reads floorplans from disk.
func New(pipeline *capture.Pipeline, resolve ImageResolver, opts Options, log *slog.Logger) (*Exporter, error) {
	if pipeline == nil {
		return nil, errors.New("capture pipeline is nil")
	}
	r, err := marker.NewRenderer(marker.DefaultGlyph())
	if err != nil {
		return nil, fmt.Errorf("creating placeholder renderer: %w", err)
	}
	if resolve == nil {
		resolve = FileResolver
	}
	if log == nil {
		log = slog.Default()
	}
	def := DefaultOptions()
	if opts.PlaceholderWidth <= 0 || opts.PlaceholderHeight <= 0 {
		opts.PlaceholderWidth, opts.PlaceholderHeight = def.PlaceholderWidth, def.PlaceholderHeight
	}
	return &Exporter{pipeline: pipeline, renderer: r, resolve: resolve, opts: opts, log: log}, nil
}

// Export numbers the project canonically and captures one overview per
// floor with a valid floorplan and, if enabled, one close-up per marker on
// such a floor showing that marker alone. Failed units carry a placeholder image. The bundle is
// returned even when ctx is cancelled, together with ctx's error.
func (e *Exporter) Export(ctx context.Context, p *project.Project) (Bundle, error) {
	idx := p.Numbering(numbering.Canonical)
	bundle := Bundle{
		Floors: make(map[string]Unit),
		Items:  make(map[string]Unit),
	}

	var reqs []capture.Request
	for _, f := range p.Floors() {
		markers := p.Markers(f.ID, idx)
		frame, ok := f.Frame()
		ok = ok && frame.Valid()

		for _, m := range markers {
			entry := MarkerEntry{
				Number:     m.Number,
				ItemID:     m.ItemID,
				FloorID:    f.ID,
				Heading:    m.Heading,
				Coordinate: m.Coordinate,
			}
			if ok {
				if pos, projected := projection.Project(frame, m.Coordinate); projected {
					entry.Position = &pos
				}
			}
			bundle.Markers = append(bundle.Markers, entry)
		}

		if !ok {
			continue
		}
		src := e.resolve(frame.Source)
		reqs = append(reqs, capture.Request{
			Key: f.ID, Kind: capture.FloorOverview, Frame: frame, Markers: markers, Image: src,
		})
		if !e.opts.CloseUps {
			continue
		}
		for _, m := range markers {
			reqs = append(reqs, capture.Request{
				Key: m.ItemID, Kind: capture.MarkerCloseUp, Frame: frame, Markers: []marker.Marker{m}, Image: src,
			})
		}
	}
	slices.SortFunc(bundle.Markers, func(a, b MarkerEntry) int {
		return cmp.Compare(a.Number, b.Number)
	})

	e.log.Info("Exporting project", "project", p.ID, "units", len(reqs), "markers", len(bundle.Markers))
	failed := 0
	for _, res := range e.pipeline.CaptureAll(ctx, reqs) {
		u := e.unit(res)
		if !u.OK {
			failed++
		}
		if res.Kind == capture.FloorOverview {
			bundle.Floors[res.Key] = u
		} else {
			bundle.Items[res.Key] = u
		}
	}
	if failed > 0 {
		e.log.Warn("Export finished with failed units", "project", p.ID, "failed", failed)
	}
	return bundle, ctx.Err()
}

func (e *Exporter) unit(res capture.Result) Unit {
	if res.OK {
		return Unit{PNG: res.PNG, OK: true}
	}
	u := Unit{Diagnostic: res.Err.Error(), Placeholder: true}
	img := e.renderer.Placeholder(e.opts.PlaceholderWidth, e.opts.PlaceholderHeight, PlaceholderLabel)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		e.log.Error("Failed to encode placeholder", "key", res.Key, "error", err)
		return u
	}
	u.PNG = buf.Bytes()
	return u
}
