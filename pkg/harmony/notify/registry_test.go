package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	t.Run("notifies in registration order", func(t *testing.T) {
		var r Registry[int]
		var calls []string

		r.Add(func(v int) { calls = append(calls, "first") })
		r.Add(func(v int) { calls = append(calls, "second") })
		r.Add(func(v int) { calls = append(calls, "third") })

		r.Notify(1)
		assert.Equal(t, []string{"first", "second", "third"}, calls)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		var r Registry[int]
		h := r.Add(func(int) {})

		assert.True(t, r.Remove(h))
		assert.False(t, r.Remove(h))
		assert.False(t, r.Remove(Handle(999)))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("handles are not reused", func(t *testing.T) {
		var r Registry[int]
		h1 := r.Add(func(int) {})
		r.Remove(h1)
		h2 := r.Add(func(int) {})
		assert.NotEqual(t, h1, h2)
	})

	t.Run("callback removed mid-dispatch is skipped", func(t *testing.T) {
		var r Registry[string]
		var second Handle
		var calls []string

		r.Add(func(v string) {
			calls = append(calls, "first")
			r.Remove(second)
		})
		second = r.Add(func(v string) { calls = append(calls, "second") })

		r.Notify("x")
		assert.Equal(t, []string{"first"}, calls)
	})

	t.Run("callback added mid-dispatch waits for the next notify", func(t *testing.T) {
		var r Registry[int]
		count := 0
		r.Add(func(int) {
			if count == 0 {
				r.Add(func(int) { count += 10 })
			}
			count++
		})

		r.Notify(0)
		assert.Equal(t, 1, count)

		r.Notify(0)
		assert.Equal(t, 12, count)
	})

	t.Run("clear", func(t *testing.T) {
		var r Registry[int]
		called := false
		h := r.Add(func(int) { called = true })
		r.Clear()
		r.Notify(0)
		assert.False(t, called)
		assert.False(t, r.Remove(h))
	})
}

func TestValue(t *testing.T) {
	v := NewValue(false)
	var seen []bool
	h := v.Watch(func(b bool) { seen = append(seen, b) })

	v.Set(true)
	v.Update(func(b *bool) { *b = !*b })
	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, v.Get())

	assert.True(t, v.Unwatch(h))
	v.Set(true)
	assert.Len(t, seen, 2)
	assert.True(t, v.Get())
}
