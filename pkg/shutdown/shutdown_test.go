package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsInReverseOrderOnce(t *testing.T) {
	m := NewManager()
	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"engine", "http"} {
		m.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "engine"}, order)
}

func TestShutdownCollectsErrors(t *testing.T) {
	m := NewManager()
	ran := false
	m.OnShutdown("last", func(context.Context) error { ran = true; return nil })
	m.OnShutdown("broken", func(context.Context) error { return errors.New("boom") })

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, ran)
}

func TestShutdownTimeout(t *testing.T) {
	m := NewManager()
	m.OnShutdown("stuck", func(context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.Shutdown(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownWithoutHandlers(t *testing.T) {
	assert.NoError(t, NewManager().Shutdown(context.Background()))
}
