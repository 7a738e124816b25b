package manager

import (
	"fmt"

	"chuck/internal/types"
)

// host is the capability handle given to each worker. It exposes only
// what a worker may ask of the manager.
type host struct {
	m      *Manager
	worker string
}

func (h *host) RequestLock(register, reason string) error {
	return h.m.RequestRegisterLock(h.worker, register, reason)
}

func (h *host) ReleaseLock(register string) error {
	return h.m.ReleaseRegisterLock(register, h.worker)
}

func (h *host) SendMessage(text string) error {
	if _, ok := h.m.Worker(h.worker); !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownWorker, h.worker)
	}
	h.m.note(h.worker, text)
	return nil
}
