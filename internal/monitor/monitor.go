// Package monitor reports progress of long-running capture batches.
package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/photokey/floorplan/internal/session"
)

// DefaultInterval is how often status is reported.
const DefaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	Context    *session.Context
	Inflight   func() int
	StatusFile string // rewritten on every tick when set
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	started   time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current status as display lines
func (s *Service) GetStatus() []string {
	command, project := "none", "none"
	if s.deps.Context != nil {
		command, project = s.deps.Context.Get()
	}
	s.mu.RLock()
	elapsed := time.Duration(0)
	if !s.started.IsZero() {
		elapsed = time.Since(s.started).Round(time.Millisecond)
	}
	s.mu.RUnlock()

	return []string{
		fmt.Sprintf("command: %s", command),
		fmt.Sprintf("project: %s", project),
		fmt.Sprintf("inflight units: %d", s.inflight()),
		fmt.Sprintf("elapsed: %s", elapsed),
	}
}

func (s *Service) inflight() int {
	if s.deps.Inflight == nil {
		return 0
	}
	return s.deps.Inflight()
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.started = time.Now()
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				lines := s.GetStatus()
				if s.deps.StatusFile != "" {
					if err := os.WriteFile(s.deps.StatusFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
						logger.Error("Error writing status file", "error", err)
					}
				}
				logger.Info("Capture status", "inflight", s.inflight(), "elapsed", time.Since(s.started).Round(time.Second))
			}
		}
	}()
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
