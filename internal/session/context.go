// Package session tracks what the running command is working on, for log
// correlation.
package session

import (
	"log/slog"
	"sync"
)

// Context holds the current command and project
type Context struct {
	mu        sync.RWMutex
	Command   string
	ProjectID string
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{Command: "none", ProjectID: "No project loaded"}
}

// Get returns the current command and project
func (c *Context) Get() (command, projectID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Command, c.ProjectID
}

// SetCommand records the command being run
func (c *Context) SetCommand(command string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Command = command
}

// SetProject records the loaded project
func (c *Context) SetProject(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProjectID = projectID
}

// Attrs returns the context as log attributes.
func (c *Context) Attrs() []slog.Attr {
	command, projectID := c.Get()
	return []slog.Attr{slog.String("command", command), slog.String("project", projectID)}
}
