package manager

import (
	"fmt"

	"chuck/internal/logging"
	"chuck/internal/register"
	"chuck/internal/types"
)

// Register returns the named register so its holder can write it.
func (m *Manager) Register(name string) (*register.Register, error) {
	return m.bank.Get(name)
}

// Registers returns snapshots of every register.
func (m *Manager) Registers() []types.RegisterInfo {
	return m.bank.Infos()
}

// CreateRegister adds an empty register. capacity <= 0 means the default.
func (m *Manager) CreateRegister(name, description string, capacity int) error {
	_, err := m.bank.Create(name, description, capacity)
	return err
}

// DeleteRegister removes a register, releasing its lock first.
func (m *Manager) DeleteRegister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holder, err := m.bank.Delete(name)
	if err != nil {
		return err
	}
	m.dropRegisterLocked(holder, name)
	return nil
}

// ConsolidateRegisters merges sources, in order, into a new register.
func (m *Manager) ConsolidateRegisters(sources []string, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	released, err := m.bank.Consolidate(sources, newName)
	if err != nil {
		return err
	}
	for name, holder := range released {
		m.dropRegisterLocked(holder, name)
	}
	return nil
}

// GrantRegisterLock gives a live worker the write lock on a register.
func (m *Manager) GrantRegisterLock(name, worker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.liveWorker(worker)
	if err != nil {
		return err
	}
	if err := m.bank.Grant(name, worker); err != nil {
		return err
	}
	a.HoldRegister(name)
	return nil
}

// ForceReleaseRegisterLock takes a lock back without the holder's consent.
// Only the manager can do this.
func (m *Manager) ForceReleaseRegisterLock(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holder, err := m.bank.ForceRelease(name)
	if err != nil {
		return err
	}
	m.dropRegisterLocked(holder, name)
	return nil
}

// ReleaseRegisterLock gives a lock back on behalf of its holder.
func (m *Manager) ReleaseRegisterLock(name, worker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.bank.Release(name, worker); err != nil {
		return err
	}
	m.dropRegisterLocked(worker, name)
	return nil
}

// RequestRegisterLock records an advisory request for the next decision
// cycle. It never changes the lock table.
func (m *Manager) RequestRegisterLock(worker, name, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.liveWorker(worker); err != nil {
		return err
	}
	advice, err := m.bank.RequestLock(name, worker, reason)
	if err != nil {
		return err
	}
	m.notes[worker] = fmt.Sprintf("requesting: grant_register_lock(%q, %q) reason: %s", name, worker, reason)
	m.notes[SelfNote] = advice
	logging.RegistersDebug("%s", advice)
	return nil
}

// dropRegisterLocked must be called with m.mu held.
func (m *Manager) dropRegisterLocked(holder, name string) {
	if holder == "" {
		return
	}
	if a, ok := m.workers[holder]; ok {
		a.DropRegister(name)
	}
}

// =============================================================================
// CHANNEL LOCKS
// =============================================================================

// GrantChannelLock gives a live worker the lock on a channel.
func (m *Manager) GrantChannelLock(channel, worker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, err := m.liveWorker(worker)
	if err != nil {
		return err
	}
	if current, locked := m.channelLocks[channel]; locked {
		return fmt.Errorf("%w: channel %q is held by %q", types.ErrAlreadyLocked, channel, current)
	}
	m.channelLocks[channel] = worker
	a.HoldChannel(channel)
	logging.Manager("Channel %s locked to %s", channel, worker)
	return nil
}

// ReleaseChannelLock frees a channel lock.
func (m *Manager) ReleaseChannelLock(channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	holder, locked := m.channelLocks[channel]
	if !locked {
		return fmt.Errorf("%w: channel %q", types.ErrNotLocked, channel)
	}
	delete(m.channelLocks, channel)
	if a, ok := m.workers[holder]; ok {
		a.DropChannel(channel)
	}
	return nil
}

// ChannelHolder returns the holder of a channel lock.
func (m *Manager) ChannelHolder(channel string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	holder, ok := m.channelLocks[channel]
	return holder, ok
}
