package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chuck/internal/types"
)

func newTestManager(t *testing.T, llm *stubLLM) *Manager {
	t.Helper()
	if llm == nil {
		llm = &stubLLM{respond: byKind(nil)}
	}
	return New(Config{Goal: "Create a new fitness app."}, llm)
}

func TestSpawnGrantKillScenario(t *testing.T) {
	m := newTestManager(t, nil)

	_, err := m.SpawnNamed("A", "take notes")
	require.NoError(t, err)
	require.NoError(t, m.CreateRegister("R", "shared", 0))
	require.NoError(t, m.GrantRegisterLock("R", "A"))

	require.NoError(t, m.Kill("A"))

	r, err := m.Register("R")
	require.NoError(t, err)
	assert.Equal(t, "", r.Holder(), "lock is released when its holder dies")

	_, err = m.SpawnNamed("B", "take over")
	require.NoError(t, err)
	require.NoError(t, m.GrantRegisterLock("R", "B"), "R is grantable again")
}

func TestKillReleasesEveryLock(t *testing.T) {
	m := newTestManager(t, nil)
	a, err := m.SpawnNamed("A", "hoard")
	require.NoError(t, err)

	for _, name := range []string{"r1", "r2", "r3"} {
		require.NoError(t, m.CreateRegister(name, "", 0))
		require.NoError(t, m.GrantRegisterLock(name, "A"))
	}
	require.NoError(t, m.GrantChannelLock("c1", "A"))
	assert.Equal(t, []string{"r1", "r2", "r3"}, a.HeldRegisters())

	require.NoError(t, m.Kill("A"))

	assert.Equal(t, types.WorkerStateDestroyed, a.State())
	assert.Empty(t, a.HeldRegisters())
	assert.Empty(t, a.HeldChannels())
	for _, info := range m.Registers() {
		assert.Empty(t, info.Holder, "register %s still references the dead worker", info.Name)
	}
	_, locked := m.ChannelHolder("c1")
	assert.False(t, locked)

	_, ok := m.Worker("A")
	assert.False(t, ok)
	assert.ErrorIs(t, m.Kill("A"), types.ErrUnknownWorker)
}

func TestSpawnDuplicateName(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := m.SpawnNamed("A", "one")
	require.NoError(t, err)
	_, err = m.SpawnNamed("A", "two")
	assert.ErrorIs(t, err, types.ErrDuplicateName)

	a, err := m.Spawn("generated")
	require.NoError(t, err)
	assert.NotEqual(t, "A", a.ID())
	assert.Equal(t, "generated", a.NarrowGoal())
	assert.Equal(t, "Create a new fitness app.", a.Goal())
	assert.Len(t, m.Workers(), 2)
}

func TestSpawnNamedRejectsMultiWordNames(t *testing.T) {
	m := newTestManager(t, nil)
	for _, name := range []string{"", "Saint Castiel", " Uriel"} {
		_, err := m.SpawnNamed(name, "goal")
		assert.Error(t, err, "name %q", name)
	}
	assert.Empty(t, m.Workers())
}

func TestRegisterLocks(t *testing.T) {
	m := newTestManager(t, nil)
	_, _ = m.SpawnNamed("W1", "")
	_, _ = m.SpawnNamed("W2", "")
	require.NoError(t, m.CreateRegister("R", "", 0))

	assert.ErrorIs(t, m.GrantRegisterLock("R", "ghost"), types.ErrUnknownWorker)
	assert.ErrorIs(t, m.GrantRegisterLock("nope", "W1"), types.ErrUnknownRegister)
	assert.ErrorIs(t, m.ForceReleaseRegisterLock("R"), types.ErrNotLocked)

	require.NoError(t, m.GrantRegisterLock("R", "W1"))
	assert.ErrorIs(t, m.GrantRegisterLock("R", "W2"), types.ErrAlreadyLocked)

	r, _ := m.Register("R")
	assert.ErrorIs(t, r.Append("x", "W2"), types.ErrLockViolation)
	require.NoError(t, r.Append("x", "W1"))

	require.NoError(t, m.ForceReleaseRegisterLock("R"))
	w1, _ := m.Worker("W1")
	assert.Empty(t, w1.HeldRegisters())

	require.NoError(t, m.GrantRegisterLock("R", "W2"))
	assert.ErrorIs(t, r.Append("y", "W1"), types.ErrLockViolation)
	require.NoError(t, r.Append("y", "W2"))
	assert.Equal(t, "xy", r.Content())

	assert.ErrorIs(t, m.ReleaseRegisterLock("R", "W1"), types.ErrLockViolation)
	require.NoError(t, m.ReleaseRegisterLock("R", "W2"))
	w2, _ := m.Worker("W2")
	assert.Empty(t, w2.HeldRegisters())
}

func TestDeleteAndConsolidateUpdateHolders(t *testing.T) {
	m := newTestManager(t, nil)
	a, _ := m.SpawnNamed("A", "")
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.CreateRegister(name, name, 0))
	}
	require.NoError(t, m.GrantRegisterLock("a", "A"))
	require.NoError(t, m.GrantRegisterLock("b", "A"))
	require.NoError(t, m.GrantRegisterLock("c", "A"))

	require.NoError(t, m.DeleteRegister("a"))
	assert.Equal(t, []string{"b", "c"}, a.HeldRegisters())

	require.NoError(t, m.ConsolidateRegisters([]string{"c", "b"}, "cb"))
	assert.Empty(t, a.HeldRegisters())
	assert.Len(t, m.Registers(), 1)

	assert.ErrorIs(t, m.DeleteRegister("a"), types.ErrUnknownRegister)
}

func TestSendMessageKeepsNewestTen(t *testing.T) {
	m := newTestManager(t, nil)
	_, _ = m.SpawnNamed("A", "")

	for i := 0; i < 12; i++ {
		require.NoError(t, m.SendMessage("A", string(rune('a'+i))))
	}
	inbox := m.Inbox("A")
	require.Len(t, inbox, 10)
	assert.Equal(t, "c", inbox[0], "oldest messages are evicted first")
	assert.Equal(t, "l", inbox[9])

	assert.ErrorIs(t, m.SendMessage("ghost", "hi"), types.ErrUnknownWorker)
}

func TestChannelLocks(t *testing.T) {
	m := newTestManager(t, nil)
	a, _ := m.SpawnNamed("A", "")
	_, _ = m.SpawnNamed("B", "")

	require.NoError(t, m.GrantChannelLock("out", "A"))
	assert.ErrorIs(t, m.GrantChannelLock("out", "B"), types.ErrAlreadyLocked)
	assert.Equal(t, []string{"out"}, a.HeldChannels())

	require.NoError(t, m.ReleaseChannelLock("out"))
	assert.Empty(t, a.HeldChannels())
	assert.ErrorIs(t, m.ReleaseChannelLock("out"), types.ErrNotLocked)
	assert.ErrorIs(t, m.GrantChannelLock("out", "ghost"), types.ErrUnknownWorker)
}

func TestHostCapabilities(t *testing.T) {
	m := newTestManager(t, nil)
	a, _ := m.SpawnNamed("A", "")
	_, _ = m.SpawnNamed("B", "")
	require.NoError(t, m.CreateRegister("R", "", 0))
	require.NoError(t, m.GrantRegisterLock("R", "B"))

	require.NoError(t, a.Absorb(`request_register_lock("R", "I have the plan")`))
	notes := m.Notes()
	assert.Contains(t, notes["A"], `grant_register_lock("R", "A")`)
	assert.Contains(t, notes[SelfNote], "locked by B")
	holder, _ := m.bank.Holder("R")
	assert.Equal(t, "B", holder, "requests are advisory")

	require.NoError(t, a.Absorb(`message_manager("done drafting")`))
	assert.Equal(t, "done drafting", m.Notes()["A"])

	err := a.Absorb(`release_register_lock("R")`)
	assert.ErrorIs(t, err, types.ErrLockViolation, "A cannot release B's lock")

	b, _ := m.Worker("B")
	require.NoError(t, b.Absorb(`release_register_lock("R")`))
	_, locked := m.bank.Holder("R")
	assert.False(t, locked)
	assert.Empty(t, b.HeldRegisters())
}

func TestSnapshot(t *testing.T) {
	m := newTestManager(t, nil)
	_, _ = m.SpawnNamed("A", "notes")
	require.NoError(t, m.CreateRegister("R", "shared", 5))
	require.NoError(t, m.GrantRegisterLock("R", "A"))
	require.NoError(t, m.SendMessage("A", "hello"))

	snap := m.Snapshot()
	assert.Equal(t, "Create a new fitness app.", snap.Goal)
	require.Len(t, snap.Workers, 1)
	assert.Equal(t, []string{"R"}, snap.Workers[0].Registers)
	assert.Equal(t, []string{"hello"}, snap.Workers[0].Inbox)
	require.Len(t, snap.Registers, 1)
	assert.Equal(t, "A", snap.Registers[0].Holder)
	assert.Equal(t, 5, snap.Registers[0].Capacity)
}
