package register

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"chuck/internal/types"
)

func TestNotesScenario(t *testing.T) {
	b := NewBank(0)
	r, err := b.Create("notes", "scratch space", 10)
	require.NoError(t, err)
	require.NoError(t, b.Grant("notes", "A"))

	require.NoError(t, r.Append("hello", "A"))
	assert.Equal(t, "hello", r.Content())

	err = r.Append("world!", "A")
	require.ErrorIs(t, err, types.ErrCapacityExceeded)
	assert.Equal(t, "hello", r.Content(), "failed append leaves content unchanged")
}

func TestMutationRequiresHolder(t *testing.T) {
	b := NewBank(0)
	r, err := b.Create("R", "", 0)
	require.NoError(t, err)

	t.Run("unlocked register rejects everyone", func(t *testing.T) {
		assert.ErrorIs(t, r.Set("x", "A"), types.ErrLockViolation)
		assert.ErrorIs(t, r.Set("x", ""), types.ErrLockViolation)
	})

	require.NoError(t, b.Grant("R", "A"))

	t.Run("non-holder is rejected", func(t *testing.T) {
		assert.ErrorIs(t, r.Set("x", "B"), types.ErrLockViolation)
		assert.ErrorIs(t, r.Append("x", "B"), types.ErrLockViolation)
		assert.ErrorIs(t, r.Clear("B"), types.ErrLockViolation)
	})

	t.Run("holder succeeds", func(t *testing.T) {
		require.NoError(t, r.Set("abc", "A"))
		require.NoError(t, r.Append("def", "A"))
		assert.Equal(t, "abcdef", r.Content())
		require.NoError(t, r.Clear("A"))
		assert.Equal(t, "", r.Content())
	})
}

func TestSetOverCapacity(t *testing.T) {
	b := NewBank(0)
	r, _ := b.Create("R", "", 3)
	require.NoError(t, b.Grant("R", "A"))
	require.NoError(t, r.Set("abc", "A"))
	assert.ErrorIs(t, r.Set("abcd", "A"), types.ErrCapacityExceeded)
	assert.Equal(t, "abc", r.Content())
}

func TestLengthCountsRunes(t *testing.T) {
	b := NewBank(0)
	r, _ := b.Create("R", "", 3)
	require.NoError(t, b.Grant("R", "A"))
	require.NoError(t, r.Set("héé", "A"), "three runes fit in capacity 3")
	assert.Equal(t, 3, r.Len())
}

func TestAppendNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 64).Draw(t, "capacity")
		values := rapid.SliceOf(rapid.StringN(0, 16, -1)).Draw(t, "values")

		b := NewBank(0)
		r, err := b.Create("R", "", capacity)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := b.Grant("R", "A"); err != nil {
			t.Fatalf("grant: %v", err)
		}

		for _, v := range values {
			before := r.Content()
			err := r.Append(v, "A")
			fits := utf8.RuneCountInString(before)+utf8.RuneCountInString(v) <= capacity
			switch {
			case fits && err != nil:
				t.Fatalf("append %q should fit: %v", v, err)
			case !fits && !errors.Is(err, types.ErrCapacityExceeded):
				t.Fatalf("append %q should exceed capacity, got %v", v, err)
			case !fits && r.Content() != before:
				t.Fatalf("failed append changed content")
			}
			if r.Len() > capacity {
				t.Fatalf("length %d exceeds capacity %d", r.Len(), capacity)
			}
		}
	})
}
