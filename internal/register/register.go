// Package register implements capacity-bounded text buffers and the
// advisory lock table that decides who may write them.
//
// Locks are cooperative markers, not mutexes. Every mutating call names
// its caller and is rejected unless the caller is the current holder.
// The Bank owns the lock table; force-release is available to the Bank's
// owner and bypasses holder consent.
package register

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"chuck/internal/logging"
	"chuck/internal/types"
)

// DefaultCapacity is the capacity of registers created without one.
const DefaultCapacity = 1000

// Register is a named text buffer with an optional single writer.
// Length is counted in runes and never exceeds Capacity.
type Register struct {
	name        string
	description string
	capacity    int

	mu      sync.RWMutex
	content string
	holder  string
}

func newRegister(name, description string, capacity int) *Register {
	return &Register{name: name, description: description, capacity: capacity}
}

func (r *Register) Name() string        { return r.name }
func (r *Register) Description() string { return r.description }
func (r *Register) Capacity() int       { return r.capacity }

// Content returns the current contents.
func (r *Register) Content() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.content
}

// Len returns the content length in runes.
func (r *Register) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return utf8.RuneCountInString(r.content)
}

// Holder returns the lock holder, or "" when unlocked.
func (r *Register) Holder() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.holder
}

// Set replaces the contents.
func (r *Register) Set(value, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLock(caller); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(value); n > r.capacity {
		logging.RegistersError("Value too large for register %s (%d > %d)", r.name, n, r.capacity)
		return fmt.Errorf("%w: register %q holds %d, value is %d", types.ErrCapacityExceeded, r.name, r.capacity, n)
	}
	r.content = value
	logging.RegistersDebug("Setting register %s to %q", r.name, value)
	return nil
}

// Append adds value to the end of the contents.
func (r *Register) Append(value, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLock(caller); err != nil {
		return err
	}
	n := utf8.RuneCountInString(r.content) + utf8.RuneCountInString(value)
	if n > r.capacity {
		logging.RegistersError("Value too large for register %s (%d > %d)", r.name, n, r.capacity)
		return fmt.Errorf("%w: register %q holds %d, would be %d", types.ErrCapacityExceeded, r.name, r.capacity, n)
	}
	r.content += value
	logging.RegistersDebug("Appending %q to register %s", value, r.name)
	return nil
}

// Clear empties the contents.
func (r *Register) Clear(caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLock(caller); err != nil {
		return err
	}
	r.content = ""
	logging.RegistersDebug("Clearing register %s", r.name)
	return nil
}

// checkLock must be called with r.mu held.
func (r *Register) checkLock(caller string) error {
	if r.holder == "" || caller != r.holder {
		logging.RegistersError("Worker %q does not hold the lock on register %s", caller, r.name)
		return fmt.Errorf("%w: %q does not hold register %q", types.ErrLockViolation, caller, r.name)
	}
	return nil
}

func (r *Register) setHolder(holder string) {
	r.mu.Lock()
	r.holder = holder
	r.mu.Unlock()
}

// Info returns a snapshot of the register.
func (r *Register) Info() types.RegisterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return types.RegisterInfo{
		Name:        r.name,
		Description: r.description,
		Content:     r.content,
		Capacity:    r.capacity,
		Holder:      r.holder,
	}
}
