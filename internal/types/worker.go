// Package types provides shared type definitions used across chuck packages.
// It exists so manager, angel and the CLI can exchange plain data without
// importing each other.
package types

// =============================================================================
// WORKER TYPES AND CONSTANTS
// =============================================================================

// WorkerState is the lifecycle state of a worker (angel).
type WorkerState string

const (
	WorkerStateActive    WorkerState = "active"    // Working normally
	WorkerStateProbation WorkerState = "probation" // Flagged, must justify itself
	WorkerStateDestroyed WorkerState = "destroyed" // Terminal
)

// WorkerInfo is a read-only snapshot of a worker for prompts and reports.
type WorkerInfo struct {
	ID         string      `json:"id"`
	Goal       string      `json:"goal"`
	NarrowGoal string      `json:"narrow_goal,omitempty"`
	State      WorkerState `json:"state"`
	Thoughts   []string    `json:"thoughts,omitempty"`
	Registers  []string    `json:"registers,omitempty"`
	Channels   []string    `json:"channels,omitempty"`
	Inbox      []string    `json:"inbox,omitempty"`
}

// RegisterInfo is a read-only snapshot of a register.
type RegisterInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Capacity    int    `json:"capacity"`
	Holder      string `json:"holder,omitempty"`
}

// Snapshot captures the Manager's tables at one point in time.
type Snapshot struct {
	Tick      int               `json:"tick"`
	Goal      string            `json:"goal"`
	Workers   []WorkerInfo      `json:"workers"`
	Registers []RegisterInfo    `json:"registers"`
	Notes     map[string]string `json:"notes,omitempty"`
}
