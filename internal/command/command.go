// Package command turns model responses into typed commands.
//
// A response is read line by line. A line is a command candidate when it
// contains a known command name; the earliest name on the line wins, and
// the longest one if two start at the same place. Arguments sit between the
// first "(" after the name and the last ")" on the line, separated by
// top-level commas. Quotes and [...] lists nest. Anything that does not
// fit yields a ParseFailure, never a partial command.
package command

import "fmt"

// Kind names a command.
type Kind string

const (
	KindSpawnWorker              Kind = "spawn_worker"
	KindKillWorker               Kind = "kill_worker"
	KindCreateRegister           Kind = "create_register"
	KindConsolidateRegisters     Kind = "consolidate_registers"
	KindDeleteRegister           Kind = "delete_register"
	KindGrantRegisterLock        Kind = "grant_register_lock"
	KindForceReleaseRegisterLock Kind = "force_release_register_lock"
	KindSendMessage              Kind = "send_message"

	// Issued by workers through their host handle.
	KindRequestRegisterLock Kind = "request_register_lock"
	KindReleaseRegisterLock Kind = "release_register_lock"
	KindMessageManager      Kind = "message_manager"
)

// Phase selects which kinds a response may contain.
type Phase int

const (
	PhaseWorkers Phase = iota
	PhaseRegisters
	PhaseCommunication
	PhaseAngel
)

func (p Phase) String() string {
	switch p {
	case PhaseWorkers:
		return "workers"
	case PhaseRegisters:
		return "registers"
	case PhaseCommunication:
		return "communication"
	case PhaseAngel:
		return "angel"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// Kinds returns the commands allowed in the phase, in prompt order.
func (p Phase) Kinds() []Kind {
	switch p {
	case PhaseWorkers:
		return []Kind{KindSpawnWorker, KindKillWorker}
	case PhaseRegisters:
		return []Kind{KindCreateRegister, KindConsolidateRegisters, KindDeleteRegister}
	case PhaseCommunication:
		return []Kind{KindGrantRegisterLock, KindForceReleaseRegisterLock, KindSendMessage}
	case PhaseAngel:
		return []Kind{KindRequestRegisterLock, KindReleaseRegisterLock, KindMessageManager}
	default:
		return nil
	}
}

// Allows reports whether kind may appear in the phase.
func (p Phase) Allows(kind Kind) bool {
	for _, k := range p.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// Command is one parsed instruction. The concrete types below are the
// only implementations.
type Command interface {
	Kind() Kind
}

type SpawnWorker struct{ Goal string }

type KillWorker struct{ Name string }

type CreateRegister struct {
	Name        string
	Description string
	Capacity    int // 0 means the default
}

type ConsolidateRegisters struct {
	Sources []string
	NewName string
}

type DeleteRegister struct{ Name string }

type GrantRegisterLock struct{ Register, Worker string }

type ForceReleaseRegisterLock struct{ Register string }

type SendMessage struct{ Worker, Text string }

type RequestRegisterLock struct{ Register, Reason string }

type ReleaseRegisterLock struct{ Register string }

type MessageManager struct{ Text string }

func (SpawnWorker) Kind() Kind              { return KindSpawnWorker }
func (KillWorker) Kind() Kind               { return KindKillWorker }
func (CreateRegister) Kind() Kind           { return KindCreateRegister }
func (ConsolidateRegisters) Kind() Kind     { return KindConsolidateRegisters }
func (DeleteRegister) Kind() Kind           { return KindDeleteRegister }
func (GrantRegisterLock) Kind() Kind        { return KindGrantRegisterLock }
func (ForceReleaseRegisterLock) Kind() Kind { return KindForceReleaseRegisterLock }
func (SendMessage) Kind() Kind              { return KindSendMessage }
func (RequestRegisterLock) Kind() Kind      { return KindRequestRegisterLock }
func (ReleaseRegisterLock) Kind() Kind      { return KindReleaseRegisterLock }
func (MessageManager) Kind() Kind           { return KindMessageManager }

// ParseFailure records a line that named a command but could not be parsed.
type ParseFailure struct {
	Line   int  // 1-based line number in the response
	Kind   Kind // the command name found on the line
	Text   string
	Reason string
}

func (f ParseFailure) Error() string {
	return fmt.Sprintf("line %d: %s: %s", f.Line, f.Kind, f.Reason)
}
