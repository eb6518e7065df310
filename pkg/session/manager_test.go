package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzah/kharcha/internal/store"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewManager(db)
}

func TestThreadKey(t *testing.T) {
	assert.Equal(t, "user-7", ThreadKey(7))
	assert.Equal(t, ThreadKey(7), ThreadKey(7))
}

func TestManager_AppendAndLoad(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	key := ThreadKey(1)

	require.NoError(t, m.Append(ctx, key, Message{Role: "user", Content: "hello"}))
	require.NoError(t, m.Append(ctx, key, Message{Role: "assistant", Content: "hi there"}))

	messages, err := m.Load(ctx, key)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.False(t, messages[0].Timestamp.IsZero())
}

func TestManager_LoadUnknownThreadIsEmpty(t *testing.T) {
	m := setupManager(t)

	messages, err := m.Load(context.Background(), ThreadKey(99))
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestManager_Validation(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	assert.Error(t, m.Append(ctx, "", Message{Role: "user", Content: "x"}))
	assert.Error(t, m.Append(ctx, "k", Message{Role: "", Content: "x"}))
	assert.Error(t, m.Append(ctx, "k", Message{Role: "user", Content: ""}))

	_, err := m.Load(ctx, "")
	assert.Error(t, err)
}

func TestManager_ThreadsAreIsolated(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, ThreadKey(1), Message{Role: "user", Content: "mine"}))
	require.NoError(t, m.Append(ctx, ThreadKey(2), Message{Role: "user", Content: "theirs"}))

	messages, err := m.Load(ctx, ThreadKey(1))
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "mine", messages[0].Content)
}

func TestManager_ConcurrentAppendsSameThread(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	key := ThreadKey(1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Append(ctx, key, Message{Role: "user", Content: "turn", Timestamp: time.Now()})
		}()
	}
	wg.Wait()

	count, err := m.MessageCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestManager_ListThreads(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, ThreadKey(2), Message{Role: "user", Content: "a"}))
	require.NoError(t, m.Append(ctx, ThreadKey(1), Message{Role: "user", Content: "b"}))

	threads, err := m.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1", "user-2"}, threads)
}
