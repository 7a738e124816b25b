package register

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"chuck/internal/logging"
	"chuck/internal/types"
)

// =============================================================================
// REGISTER BANK
// =============================================================================

// Bank owns the register table and the lock table.
// A register name appears in the lock table at most once; a holder may
// appear many times.
type Bank struct {
	mu              sync.RWMutex
	registers       map[string]*Register
	locks           map[string]string // register -> holder
	defaultCapacity int
}

// NewBank creates an empty bank. capacity <= 0 means DefaultCapacity.
func NewBank(defaultCapacity int) *Bank {
	if defaultCapacity <= 0 {
		defaultCapacity = DefaultCapacity
	}
	logging.RegistersDebug("Creating register bank (default capacity %d)", defaultCapacity)
	return &Bank{
		registers:       make(map[string]*Register),
		locks:           make(map[string]string),
		defaultCapacity: defaultCapacity,
	}
}

// DefaultCapacity returns the capacity used when none is given.
func (b *Bank) DefaultCapacity() int {
	return b.defaultCapacity
}

// Create adds an empty register. capacity <= 0 means the bank default.
func (b *Bank) Create(name, description string, capacity int) (*Register, error) {
	if name == "" {
		return nil, fmt.Errorf("register name must not be empty")
	}
	if capacity <= 0 {
		capacity = b.defaultCapacity
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.registers[name]; exists {
		return nil, fmt.Errorf("%w: register %q", types.ErrDuplicateName, name)
	}
	r := newRegister(name, description, capacity)
	b.registers[name] = r
	logging.Registers("Register %s created (capacity %d)", name, capacity)
	return r, nil
}

// Get returns the named register.
func (b *Bank) Get(name string) (*Register, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.registers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRegister, name)
	}
	return r, nil
}

// Len returns the number of registers.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.registers)
}

// List returns all registers sorted by name.
func (b *Bank) List() []*Register {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Register, 0, len(b.registers))
	for _, r := range b.registers {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Infos returns snapshots of all registers sorted by name.
func (b *Bank) Infos() []types.RegisterInfo {
	regs := b.List()
	out := make([]types.RegisterInfo, len(regs))
	for i, r := range regs {
		out[i] = r.Info()
	}
	return out
}

// Delete removes a register, releasing its lock first.
// It returns the former holder, or "" if the register was unlocked.
func (b *Bank) Delete(name string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.registers[name]; !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownRegister, name)
	}
	holder := b.unlockLocked(name)
	delete(b.registers, name)
	logging.Registers("Register %s deleted", name)
	return holder, nil
}

// Consolidate replaces sources with one register named newName whose
// content is the sources' contents concatenated in order. The new register
// gets the default capacity. Nothing changes on failure.
// The returned map lists released locks as register -> former holder.
func (b *Bank) Consolidate(sources []string, newName string) (map[string]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: consolidate needs at least one source", types.ErrUnknownRegister)
	}
	if newName == "" {
		return nil, fmt.Errorf("register name must not be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(sources))
	var sb strings.Builder
	for _, name := range sources {
		r, ok := b.registers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownRegister, name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: register %q listed twice", types.ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
		sb.WriteString(r.Content())
	}
	if _, exists := b.registers[newName]; exists {
		return nil, fmt.Errorf("%w: register %q", types.ErrDuplicateName, newName)
	}

	content := sb.String()
	if n := utf8.RuneCountInString(content); n > b.defaultCapacity {
		return nil, fmt.Errorf("%w: consolidated content is %d, capacity %d", types.ErrCapacityExceeded, n, b.defaultCapacity)
	}

	released := make(map[string]string)
	var descriptions []string
	for _, name := range sources {
		if holder := b.unlockLocked(name); holder != "" {
			released[name] = holder
		}
		descriptions = append(descriptions, b.registers[name].description)
		delete(b.registers, name)
	}

	r := newRegister(newName, strings.Join(descriptions, "; "), b.defaultCapacity)
	r.content = content
	b.registers[newName] = r

	logging.Registers("Consolidated %v into %s", sources, newName)
	return released, nil
}

// Grant locks a register to holder. Fails with ErrAlreadyLocked if held,
// even by the same holder.
func (b *Bank) Grant(register, holder string) error {
	if holder == "" {
		return fmt.Errorf("%w: empty holder", types.ErrUnknownWorker)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.registers[register]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownRegister, register)
	}
	if current, locked := b.locks[register]; locked {
		return fmt.Errorf("%w: register %q is held by %q", types.ErrAlreadyLocked, register, current)
	}
	b.locks[register] = holder
	r.setHolder(holder)
	logging.Registers("Register %s locked to %s", register, holder)
	return nil
}

// ForceRelease unlocks a register regardless of its holder's consent.
// It returns the former holder.
func (b *Bank) ForceRelease(register string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.registers[register]; !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownRegister, register)
	}
	holder := b.unlockLocked(register)
	if holder == "" {
		return "", fmt.Errorf("%w: register %q", types.ErrNotLocked, register)
	}
	logging.Registers("Register %s force-released from %s", register, holder)
	return holder, nil
}

// Release unlocks a register on behalf of its holder.
func (b *Bank) Release(register, holder string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.registers[register]; !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownRegister, register)
	}
	current, locked := b.locks[register]
	if !locked {
		return fmt.Errorf("%w: register %q", types.ErrNotLocked, register)
	}
	if current != holder {
		return fmt.Errorf("%w: %q does not hold register %q", types.ErrLockViolation, holder, register)
	}
	b.unlockLocked(register)
	logging.Registers("Register %s released by %s", register, holder)
	return nil
}

// unlockLocked must be called with b.mu held.
func (b *Bank) unlockLocked(register string) string {
	holder, locked := b.locks[register]
	if !locked {
		return ""
	}
	delete(b.locks, register)
	if r, ok := b.registers[register]; ok {
		r.setHolder("")
	}
	return holder
}

// Holder returns the holder of register and whether it is locked.
func (b *Bank) Holder(register string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	holder, ok := b.locks[register]
	return holder, ok
}

// LockedBy returns the registers held by holder, sorted.
func (b *Bank) LockedBy(holder string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []string
	for register, h := range b.locks {
		if h == holder {
			out = append(out, register)
		}
	}
	sort.Strings(out)
	return out
}

// Locks returns a copy of the lock table.
func (b *Bank) Locks() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.locks))
	for k, v := range b.locks {
		out[k] = v
	}
	return out
}

// RequestLock is advisory. It never changes the lock table; it returns the
// note the manager should see on its next decision cycle.
func (b *Bank) RequestLock(register, requester, reason string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.registers[register]; !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownRegister, register)
	}
	if holder, locked := b.locks[register]; locked {
		return fmt.Sprintf("%s requests register %s (reason: %s). It is currently locked by %s. Use force_release_register_lock(%q) to force release it.",
			requester, register, reason, holder, register), nil
	}
	return fmt.Sprintf("%s requests register %s (reason: %s). It is not locked. Use grant_register_lock(%q, %q) to grant access.",
		requester, register, reason, register, requester), nil
}
