package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Empty(t *testing.T) {
	ctx := NewContext()

	_, ok := ctx.Get()
	assert.False(t, ok)
	assert.Equal(t, uint(0), ctx.ID())
	assert.Nil(t, ctx.LogAttrs())

	_, ok = ctx.End()
	assert.False(t, ok)
}

func TestContext_Lifecycle(t *testing.T) {
	ctx := NewContext()

	s := ctx.Start("1.2.0", "x11", "free", map[string]any{"invertY": false})
	_, err := uuid.Parse(s.UUID)
	require.NoError(t, err)
	assert.False(t, s.StartTime.IsZero())

	ctx.SetID(9)
	got, ok := ctx.Get()
	require.True(t, ok)
	assert.Equal(t, uint(9), got.ID)
	assert.Equal(t, "x11", got.MouseBackend)

	attrs := ctx.LogAttrs()
	require.Len(t, attrs, 1)
	assert.Equal(t, "session", attrs[0].Key)
	assert.Equal(t, s.UUID, attrs[0].Value.String())

	ended, ok := ctx.End()
	require.True(t, ok)
	assert.False(t, ended.EndTime.Before(ended.StartTime))
	assert.Equal(t, uint(0), ctx.ID())
}

func TestContext_StartReplaces(t *testing.T) {
	ctx := NewContext()

	first := ctx.Start("1", "x11", "free", nil)
	second := ctx.Start("1", "x11", "free", nil)

	got, _ := ctx.Get()
	assert.NotEqual(t, first.UUID, second.UUID)
	assert.Equal(t, second.UUID, got.UUID)
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	ctx.Start("1", "win32", "classic", nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx.SetID(uint(i))
			_, _ = ctx.Get()
			_ = ctx.LogAttrs()
		}(i)
	}
	wg.Wait()
}
