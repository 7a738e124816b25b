package types

import "errors"

// =============================================================================
// ERROR TAXONOMY
// =============================================================================
//
// Register, lock and table operations return these sentinels wrapped with the
// offending name, so callers match with errors.Is.

var (
	// ErrDuplicateName is returned when a register or worker name is already taken.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrLockViolation is returned when a register is mutated by a caller that
	// does not hold its lock.
	ErrLockViolation = errors.New("lock violation")

	// ErrCapacityExceeded is returned when a write would push a register past its capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrNotLocked is returned when releasing a lock nobody holds.
	ErrNotLocked = errors.New("not locked")

	// ErrAlreadyLocked is returned when granting a lock that is already held.
	ErrAlreadyLocked = errors.New("already locked")

	// ErrUnknownWorker is returned when a command names a worker that does not exist.
	ErrUnknownWorker = errors.New("unknown worker")

	// ErrUnknownRegister is returned when a command names a register that does not exist.
	ErrUnknownRegister = errors.New("unknown register")

	// ErrWorkerDestroyed is returned when a destroyed worker is asked to change state.
	ErrWorkerDestroyed = errors.New("worker destroyed")
)

var contractErrors = []error{
	ErrDuplicateName,
	ErrLockViolation,
	ErrCapacityExceeded,
	ErrNotLocked,
	ErrAlreadyLocked,
	ErrUnknownWorker,
	ErrUnknownRegister,
	ErrWorkerDestroyed,
}

// IsContractError reports whether err belongs to the set of table/lock
// violations that abort the remaining commands of a decision phase.
func IsContractError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range contractErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
