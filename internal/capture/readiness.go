package capture

import "sync"

// Readiness joins the two asynchronous conditions of a capture unit. Done is
// closed exactly once, on the transition to both flags set. After Abort all
// further marks are ignored and Done is never closed.
type Readiness struct {
	mu      sync.Mutex
	image   bool
	surface bool
	aborted bool
	done    chan struct{}
}

// NewReadiness returns a join with neither condition met.
func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// MarkImageLoaded records that the floorplan image is decoded.
func (r *Readiness) MarkImageLoaded() {
	r.mark(&r.image)
}

// MarkSurfaceReady records that the positioning surface is prepared.
func (r *Readiness) MarkSurfaceReady() {
	r.mark(&r.surface)
}

func (r *Readiness) mark(flag *bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aborted || *flag {
		return
	}
	*flag = true
	if r.image && r.surface {
		close(r.done)
	}
}

// Abort turns later marks into no-ops.
func (r *Readiness) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aborted = true
}

// Done is closed when both conditions are met.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Ready reports whether both conditions are met.
func (r *Readiness) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.image && r.surface
}

// Aborted reports whether Abort was called.
func (r *Readiness) Aborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.aborted
}
