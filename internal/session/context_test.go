package session

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_Defaults(t *testing.T) {
	ctx := NewContext()

	command, project := ctx.Get()
	assert.Equal(t, "none", command)
	assert.Equal(t, "No project loaded", project)
}

func TestContext_Attrs(t *testing.T) {
	ctx := NewContext()
	ctx.SetCommand("export")
	ctx.SetProject("site-visit")

	assert.Equal(t, []slog.Attr{
		slog.String("command", "export"),
		slog.String("project", "site-visit"),
	}, ctx.Attrs())
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); ctx.SetProject("p") }()
		go func() { defer wg.Done(); _ = ctx.Attrs() }()
	}
	wg.Wait()

	_, project := ctx.Get()
	assert.Equal(t, "p", project)
}
