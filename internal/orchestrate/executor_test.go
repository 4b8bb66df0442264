package orchestrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cameronsjo/stevedore/internal/compose"
)

const threeTierSpec = `
services:
  db:
    image: postgres:16
  cache:
    image: redis:7
  web:
    image: app:v1
    depends_on: [db, cache]
`

func TestExcludedServices(t *testing.T) {
	e, _ := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	t.Run("empty filter excludes nothing", func(t *testing.T) {
		assert.Empty(t, e.excludedServices(nil))
	})

	t.Run("requesting a leaf keeps its dependencies", func(t *testing.T) {
		excluded := e.excludedServices([]string{"web"})
		assert.Empty(t, excluded)
	})

	t.Run("requesting a dependency drops the rest", func(t *testing.T) {
		excluded := e.excludedServices([]string{"db"})
		assert.Equal(t, map[string]bool{"cache": true, "web": true}, excluded)
	})

	t.Run("unknown service excludes everything else", func(t *testing.T) {
		excluded := e.excludedServices([]string{"ghost"})
		assert.Len(t, excluded, 3)
	})
}

func TestAssertServices(t *testing.T) {
	e, _ := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	assert.NoError(t, e.AssertServices(nil))
	assert.NoError(t, e.AssertServices([]string{"db", "web"}))
	assert.ErrorContains(t, e.AssertServices([]string{"ghost"}), "ghost")
}

func TestProjectFilter(t *testing.T) {
	e, _ := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})
	assert.Equal(t, "label="+compose.LabelProject+"=proj", e.projectFilter())
}
