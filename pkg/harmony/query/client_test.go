package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func counter(value string) (func(context.Context) (string, error), *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}, &calls
}

func TestKey(t *testing.T) {
	assert.True(t, Key{"servers", "1", "channels"}.HasPrefix(Key{"servers", "1"}))
	assert.True(t, Key{"servers"}.HasPrefix(nil))
	assert.False(t, Key{"servers"}.HasPrefix(Key{"servers", "1"}))
	assert.False(t, Key{"servers", "12"}.HasPrefix(Key{"servers", "1"}))
	assert.NotEqual(t, Key{"a", "b"}.String(), Key{"a b"}.String())
}

func TestEnsureData(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches once", func(t *testing.T) {
		c := NewClient(time.Minute)
		fn, calls := counter("gophers")

		v, err := EnsureData(ctx, c, Key{"servers", "1"}, fn)
		require.NoError(t, err)
		assert.Equal(t, "gophers", v)

		v, err = EnsureData(ctx, c, Key{"servers", "1"}, fn)
		require.NoError(t, err)
		assert.Equal(t, "gophers", v)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("stale data is still returned", func(t *testing.T) {
		clk := &clock{t: time.Now()}
		c := NewClient(time.Minute, WithNow(clk.now))
		fn, calls := counter("gophers")

		_, err := EnsureData(ctx, c, Key{"servers"}, fn)
		require.NoError(t, err)
		clk.advance(time.Hour)
		c.Invalidate()

		_, err = EnsureData(ctx, c, Key{"servers"}, fn)
		require.NoError(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := NewClient(time.Minute)
		boom := errors.New("boom")

		_, err := EnsureData(ctx, c, Key{"servers"}, func(context.Context) (string, error) {
			return "", boom
		})
		assert.ErrorIs(t, err, boom)

		_, ok := GetData[string](c, Key{"servers"})
		assert.False(t, ok)

		v, err := EnsureData(ctx, c, Key{"servers"}, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		c := NewClient(time.Minute)
		release := make(chan struct{})
		var calls atomic.Int32
		fn := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 5)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := EnsureData(ctx, c, Key{"answer"}, fn)
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}

		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, []int{42, 42, 42, 42, 42}, results)
	})

	t.Run("caller context cancels the wait", func(t *testing.T) {
		c := NewClient(time.Minute)
		release := make(chan struct{})
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := EnsureData(ctx, c, Key{"slow"}, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("first caller cancelling does not fail the others", func(t *testing.T) {
		c := NewClient(time.Minute)
		release := make(chan struct{})
		var calls atomic.Int32
		fn := func(ctx context.Context) (int, error) {
			calls.Add(1)
			select {
			case <-release:
				return 42, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		firstCtx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := EnsureData(firstCtx, c, Key{"k"}, fn)
			firstErr <- err
		}()
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

		type result struct {
			v   int
			err error
		}
		second := make(chan result, 1)
		go func() {
			v, err := EnsureData(context.Background(), c, Key{"k"}, fn)
			second <- result{v, err}
		}()
		time.Sleep(20 * time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		res := <-second
		require.NoError(t, res.err)
		assert.Equal(t, 42, res.v)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Now()}
	c := NewClient(time.Minute, WithNow(clk.now))
	fn, calls := counter("gophers")

	_, err := Fetch(ctx, c, Key{"servers"}, fn)
	require.NoError(t, err)
	_, err = Fetch(ctx, c, Key{"servers"}, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	clk.advance(time.Minute)
	_, err = Fetch(ctx, c, Key{"servers"}, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, 1, c.Invalidate("servers"))
	_, err = Fetch(ctx, c, Key{"servers"}, fn)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvalidateAndRemove(t *testing.T) {
	c := NewClient(time.Minute)
	SetData(c, Key{"servers", "1"}, "a")
	SetData(c, Key{"servers", "1", "channels"}, []string{"general"})
	SetData(c, Key{"servers", "2"}, "b")
	SetData(c, Key{"dms"}, "c")

	assert.Equal(t, 2, c.Invalidate("servers", "1"))
	assert.Equal(t, 3, c.Invalidate("servers"))

	assert.Equal(t, 2, c.Remove("servers", "1"))
	_, ok := GetData[string](c, Key{"servers", "1"})
	assert.False(t, ok)

	v, ok := GetData[string](c, Key{"servers", "2"})
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = GetData[int](c, Key{"dms"})
	assert.False(t, ok)

	assert.Equal(t, 2, c.Remove())
}
