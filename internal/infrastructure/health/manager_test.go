package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerHealthyWithNoChecks(t *testing.T) {
	m := NewManager(nil)
	assert.True(t, m.Healthy())
	assert.Empty(t, m.Status())
}

func TestManagerAggregatesChecks(t *testing.T) {
	m := NewManager(nil)
	m.Register("sync", func() error { return nil })
	m.Register("backend", func() error { return fmt.Errorf("unreachable") })

	assert.False(t, m.Healthy())

	status := m.Status()
	assert.Equal(t, "healthy", status["sync"])
	assert.Contains(t, status["backend"], "unreachable")
}

func TestManagerRecoversWhenCheckClears(t *testing.T) {
	failing := true
	m := NewManager(nil)
	m.Register("sync", func() error {
		if failing {
			return fmt.Errorf("stale")
		}
		return nil
	})

	assert.False(t, m.Healthy())
	failing = false
	assert.True(t, m.Healthy())
}
