package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type row struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

func TestLoadReadsThrough(t *testing.T) {
	l := NewLoader(NewMemoryStore(), "test")
	ctx := context.Background()

	var calls int32
	load := func(context.Context) ([]row, error) {
		atomic.AddInt32(&calls, 1)
		return []row{{Name: "SP", Total: 3}}, nil
	}

	got, err := Load(ctx, l, "k", time.Minute, load)
	require.NoError(t, err)
	require.Equal(t, []row{{Name: "SP", Total: 3}}, got)

	got, err = Load(ctx, l, "k", time.Minute, load)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	l.Invalidate(ctx, "k")
	_, err = Load(ctx, l, "k", time.Minute, load)
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	l := NewLoader(NewMemoryStore(), "test")
	ctx := context.Background()

	_, err := Load(ctx, l, "k", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("db down")
	})
	require.Error(t, err)

	v, err := Load(ctx, l, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestLoadSharesConcurrentMisses(t *testing.T) {
	l := NewLoader(NewMemoryStore(), "test")
	ctx := context.Background()

	release := make(chan struct{})
	var calls int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Load(ctx, l, "k", time.Minute, func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 1, nil
			})
			require.NoError(t, err)
			require.Equal(t, 1, v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}
