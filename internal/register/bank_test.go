package register

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chuck/internal/types"
)

func TestCreateDuplicate(t *testing.T) {
	b := NewBank(0)
	_, err := b.Create("R", "first", 0)
	require.NoError(t, err)
	_, err = b.Create("R", "second", 0)
	assert.ErrorIs(t, err, types.ErrDuplicateName)

	r, err := b.Get("R")
	require.NoError(t, err)
	assert.Equal(t, "first", r.Description())
	assert.Equal(t, DefaultCapacity, r.Capacity())
}

func TestGetUnknown(t *testing.T) {
	_, err := NewBank(0).Get("nope")
	assert.ErrorIs(t, err, types.ErrUnknownRegister)
}

func TestGrantWhileHeld(t *testing.T) {
	b := NewBank(0)
	_, _ = b.Create("R", "", 0)

	require.NoError(t, b.Grant("R", "W1"))
	assert.ErrorIs(t, b.Grant("R", "W2"), types.ErrAlreadyLocked)
	assert.ErrorIs(t, b.Grant("R", "W1"), types.ErrAlreadyLocked)

	holder, err := b.ForceRelease("R")
	require.NoError(t, err)
	assert.Equal(t, "W1", holder)

	require.NoError(t, b.Grant("R", "W2"))
	h, locked := b.Holder("R")
	assert.True(t, locked)
	assert.Equal(t, "W2", h)
}

func TestForceReleaseUnlocked(t *testing.T) {
	b := NewBank(0)
	_, _ = b.Create("R", "", 0)
	_, err := b.ForceRelease("R")
	assert.ErrorIs(t, err, types.ErrNotLocked)
	_, err = b.ForceRelease("missing")
	assert.ErrorIs(t, err, types.ErrUnknownRegister)
}

func TestRelease(t *testing.T) {
	b := NewBank(0)
	r, _ := b.Create("R", "", 0)
	require.NoError(t, b.Grant("R", "A"))

	assert.ErrorIs(t, b.Release("R", "B"), types.ErrLockViolation)
	require.NoError(t, b.Release("R", "A"))
	assert.Equal(t, "", r.Holder())
	assert.ErrorIs(t, b.Release("R", "A"), types.ErrNotLocked)
}

func TestLockTableIsConsistent(t *testing.T) {
	b := NewBank(0)
	for _, name := range []string{"a", "b", "c"} {
		_, _ = b.Create(name, "", 0)
	}
	require.NoError(t, b.Grant("a", "W"))
	require.NoError(t, b.Grant("c", "W"))
	require.NoError(t, b.Grant("b", "V"))

	assert.Equal(t, []string{"a", "c"}, b.LockedBy("W"))
	assert.Equal(t, map[string]string{"a": "W", "b": "V", "c": "W"}, b.Locks())

	for _, info := range b.Infos() {
		holder, _ := b.Holder(info.Name)
		assert.Equal(t, holder, info.Holder, "register %s", info.Name)
	}
}

func TestDeleteReleasesLock(t *testing.T) {
	b := NewBank(0)
	_, _ = b.Create("R", "", 0)
	require.NoError(t, b.Grant("R", "A"))

	holder, err := b.Delete("R")
	require.NoError(t, err)
	assert.Equal(t, "A", holder)
	assert.Empty(t, b.Locks())
	assert.Empty(t, b.LockedBy("A"))

	_, err = b.Delete("R")
	assert.ErrorIs(t, err, types.ErrUnknownRegister)
}

func fill(t *testing.T, b *Bank, name, content string) {
	t.Helper()
	r, err := b.Create(name, name+" desc", 0)
	require.NoError(t, err)
	require.NoError(t, b.Grant(name, "filler"))
	require.NoError(t, r.Set(content, "filler"))
	_, err = b.ForceRelease(name)
	require.NoError(t, err)
}

func TestConsolidate(t *testing.T) {
	b := NewBank(0)
	fill(t, b, "favorite_exercises", "squats;")
	fill(t, b, "favorite_foods", "oats;")
	require.NoError(t, b.Grant("favorite_foods", "A"))

	released, err := b.Consolidate([]string{"favorite_foods", "favorite_exercises"}, "favorite_things")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"favorite_foods": "A"}, released)

	r, err := b.Get("favorite_things")
	require.NoError(t, err)
	assert.Equal(t, "oats;squats;", r.Content(), "contents follow the caller's order")
	assert.Equal(t, DefaultCapacity, r.Capacity())
	assert.Equal(t, "", r.Holder())

	_, err = b.Get("favorite_foods")
	assert.ErrorIs(t, err, types.ErrUnknownRegister)
	assert.Empty(t, b.Locks())
	assert.Equal(t, 1, b.Len())
}

func TestConsolidateFailuresLeaveBankUntouched(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		newName string
		want    error
	}{
		{"unknown source", []string{"a", "ghost"}, "c", types.ErrUnknownRegister},
		{"new name taken", []string{"a"}, "b", types.ErrDuplicateName},
		{"new name is a source", []string{"a", "b"}, "a", types.ErrDuplicateName},
		{"source listed twice", []string{"a", "a"}, "c", types.ErrDuplicateName},
		{"no sources", nil, "c", types.ErrUnknownRegister},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBank(0)
			fill(t, b, "a", "aaa")
			fill(t, b, "b", "bbb")
			require.NoError(t, b.Grant("a", "A"))

			_, err := b.Consolidate(tt.sources, tt.newName)
			require.ErrorIs(t, err, tt.want)

			assert.Equal(t, 2, b.Len())
			holder, locked := b.Holder("a")
			assert.True(t, locked)
			assert.Equal(t, "A", holder)
		})
	}
}

func TestConsolidateOverflow(t *testing.T) {
	b := NewBank(8)
	fill(t, b, "a", "aaaaa")
	fill(t, b, "b", "bbbbb")

	_, err := b.Consolidate([]string{"a", "b"}, "ab")
	require.ErrorIs(t, err, types.ErrCapacityExceeded)
	assert.Equal(t, 2, b.Len())
	_, err = b.Get("ab")
	assert.ErrorIs(t, err, types.ErrUnknownRegister)
}

func TestRequestLockIsAdvisory(t *testing.T) {
	b := NewBank(0)
	_, _ = b.Create("R", "", 0)

	note, err := b.RequestLock("R", "A", "need to write")
	require.NoError(t, err)
	assert.Contains(t, note, "not locked")
	assert.Contains(t, note, `grant_register_lock("R", "A")`)
	assert.Empty(t, b.Locks(), "a request never grants")

	require.NoError(t, b.Grant("R", "B"))
	note, err = b.RequestLock("R", "A", "need to write")
	require.NoError(t, err)
	assert.True(t, strings.Contains(note, "locked by B"))
	assert.Contains(t, note, "force_release_register_lock")

	_, err = b.RequestLock("ghost", "A", "")
	assert.ErrorIs(t, err, types.ErrUnknownRegister)
}
