package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photokey/floorplan/internal/dispatcher"
)

// Pipeline captures units, at most Options.Workers at a time.
type Pipeline struct {
	opts       Options
	surface    Surface
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger
}

// New creates a pipeline drawing markers through surface.
func New(opts Options, surface Surface, log *slog.Logger) (*Pipeline, error) {
	if surface == nil {
		return nil, errors.New("capture surface is nil")
	}
	if log == nil {
		log = slog.Default()
	}
	d, err := dispatcher.New(log, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating capture dispatcher: %w", err)
	}

	p := &Pipeline{opts: opts, surface: surface, dispatcher: d, log: log}
	for _, k := range []Kind{FloorOverview, MarkerCloseUp} {
		d.Register(k.String(), p.handle, dispatcher.Logged())
	}
	return p, nil
}

func (p *Pipeline) handle(ctx context.Context, j dispatcher.Job) (any, error) {
	req, ok := j.Payload.(Request)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", j.Payload)
	}
	return p.capture(ctx, req)
}

// Capture runs one unit outside the worker limit.
func (p *Pipeline) Capture(ctx context.Context, req Request) Result {
	png, err := p.capture(ctx, req)
	return result(req, png, err)
}

// CaptureAll runs every unit through the worker pool and returns the results
// in request order. A failing unit does not stop the others. When ctx is
// cancelled, unfinished units fail with ErrCaptureAborted and anything they
// produce afterwards is discarded.
func (p *Pipeline) CaptureAll(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		i, req := i, req
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.dispatcher.Dispatch(ctx, dispatcher.Job{Kind: req.Kind.String(), Key: req.Key, Payload: req})
			if err != nil && ctx.Err() != nil && !isCaptureErr(err) {
				err = fmt.Errorf("%w: %w", ErrCaptureAborted, err)
			}
			png, _ := out.([]byte)
			results[i] = result(req, png, err)
		}()
	}
	wg.Wait()
	return results
}

func result(req Request, png []byte, err error) Result {
	if err != nil {
		return Result{Key: req.Key, Kind: req.Kind, Err: err}
	}
	return Result{Key: req.Key, Kind: req.Kind, PNG: png, OK: true}
}

func isCaptureErr(err error) bool {
	for _, target := range []error{ErrImageLoad, ErrSurface, ErrCaptureTimeout, ErrCaptureTooSmall, ErrCaptureAborted} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// capture waits for the image and the surface, lets the result settle and
// composes it. Whatever the two producers deliver after capture returns is
// dropped.
func (p *Pipeline) capture(parent context.Context, req Request) ([]byte, error) {
	id := uuid.NewString()
	log := p.log.With("unit", id, "key", req.Key, "kind", req.Kind.String())
	start := time.Now()

	ctx := parent
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, p.opts.Timeout)
		defer cancel()
	}

	ready := NewReadiness()
	defer ready.Abort()

	images := make(chan image.Image, 1)
	layouts := make(chan Layout, 1)
	errs := make(chan error, 2)

	go func() {
		if req.Image == nil {
			errs <- fmt.Errorf("%w: no image source", ErrImageLoad)
			return
		}
		img, err := req.Image.Load(ctx)
		if err != nil {
			errs <- fmt.Errorf("%w: %w", ErrImageLoad, err)
			return
		}
		if img == nil || img.Bounds().Empty() {
			errs <- fmt.Errorf("%w: no image decoded", ErrImageLoad)
			return
		}
		images <- img
		ready.MarkImageLoaded()
	}()

	go func() {
		layout, err := p.surface.Prepare(ctx, req.Frame, req.Markers)
		if err != nil {
			errs <- fmt.Errorf("%w: %w", ErrSurface, err)
			return
		}
		layouts <- layout
		ready.MarkSurfaceReady()
	}()

	select {
	case <-ready.Done():
	case err := <-errs:
		if ctx.Err() != nil {
			return nil, p.interrupted(parent, log)
		}
		log.Warn("Capture unit failed", "error", err)
		return nil, err
	case <-ctx.Done():
		return nil, p.interrupted(parent, log)
	}

	if p.opts.SettleDelay > 0 {
		settle := time.NewTimer(p.opts.SettleDelay)
		defer settle.Stop()
		select {
		case <-settle.C:
		case <-ctx.Done():
			return nil, p.interrupted(parent, log)
		}
	}

	out, err := encodePNG(p.compose(<-images, <-layouts, req))
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", req.Kind, req.Key, err)
	}
	if ctx.Err() != nil {
		return nil, p.interrupted(parent, log)
	}
	if len(out) < p.opts.MinBytes {
		err := fmt.Errorf("%w: %d bytes", ErrCaptureTooSmall, len(out))
		log.Warn("Capture unit failed", "error", err)
		return nil, err
	}

	log.Debug("Captured unit", "bytes", len(out), "duration", time.Since(start))
	return out, nil
}

func (p *Pipeline) interrupted(parent context.Context, log *slog.Logger) error {
	if err := parent.Err(); err != nil {
		log.Info("Capture unit aborted")
		return fmt.Errorf("%w: %w", ErrCaptureAborted, err)
	}
	log.Warn("Capture unit timed out", "timeout", p.opts.Timeout)
	return fmt.Errorf("%w after %s", ErrCaptureTimeout, p.opts.Timeout)
}

// Inflight returns the number of units being captured by CaptureAll.
func (p *Pipeline) Inflight() int {
	return p.dispatcher.Inflight()
}
