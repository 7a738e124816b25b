// Package angel implements the worker: a unit of delegated work with a
// goal, a bounded thought log and a probation flag.
//
// An Angel never sees the manager. It is created with a Host, a narrow
// capability handle through which it may ask for locks, give locks back
// and message the manager.
package angel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"chuck/internal/command"
	"chuck/internal/gateway"
	"chuck/internal/ids"
	"chuck/internal/logging"
	"chuck/internal/types"
)

// DefaultThoughtDepth is the default thought log size.
const DefaultThoughtDepth = 4

// Host is everything an Angel may ask of its manager.
type Host interface {
	RequestLock(register, reason string) error
	ReleaseLock(register string) error
	SendMessage(text string) error
}

// Angel is a worker. All methods are safe for concurrent use.
type Angel struct {
	id         string
	goal       string
	narrowGoal string
	globalInfo string
	depth      int
	host       Host

	mu          sync.RWMutex
	state       types.WorkerState
	thoughts    []string
	registers   map[string]struct{}
	channels    map[string]struct{}
	thinkTaskID string
}

// New creates an active worker. depth <= 0 means DefaultThoughtDepth.
func New(id, goal, narrowGoal, globalInfo string, depth int, host Host) *Angel {
	if depth <= 0 {
		depth = DefaultThoughtDepth
	}
	return &Angel{
		id:         id,
		goal:       goal,
		narrowGoal: narrowGoal,
		globalInfo: globalInfo,
		depth:      depth,
		host:       host,
		state:      types.WorkerStateActive,
		registers:  make(map[string]struct{}),
		channels:   make(map[string]struct{}),
	}
}

func (a *Angel) ID() string         { return a.id }
func (a *Angel) Goal() string       { return a.goal }
func (a *Angel) NarrowGoal() string { return a.narrowGoal }
func (a *Angel) Depth() int         { return a.depth }

// State returns the lifecycle state.
func (a *Angel) State() types.WorkerState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// OnProbation reports whether the danger flag is set.
func (a *Angel) OnProbation() bool {
	return a.State() == types.WorkerStateProbation
}

// Thoughts returns the thought log, oldest first.
func (a *Angel) Thoughts() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.thoughts...)
}

// AddThought appends to the log, evicting the oldest entry past depth.
func (a *Angel) AddThought(thought string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.thoughts = append(a.thoughts, thought)
	if over := len(a.thoughts) - a.depth; over > 0 {
		a.thoughts = append([]string(nil), a.thoughts[over:]...)
	}
}

// MarkProbation moves Active to Probation. It is a no-op on probation and
// fails once destroyed.
func (a *Angel) MarkProbation() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case types.WorkerStateDestroyed:
		return fmt.Errorf("%w: %s", types.ErrWorkerDestroyed, a.id)
	case types.WorkerStateActive:
		a.state = types.WorkerStateProbation
		logging.Angels("%s placed on probation", a.id)
	}
	return nil
}

// Destroy marks the worker destroyed. The caller must already have
// released every lock in HeldRegisters and HeldChannels.
func (a *Angel) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = types.WorkerStateDestroyed
	a.registers = make(map[string]struct{})
	a.channels = make(map[string]struct{})
}

// HoldRegister records a granted register lock.
func (a *Angel) HoldRegister(name string) {
	a.mu.Lock()
	a.registers[name] = struct{}{}
	a.mu.Unlock()
}

// DropRegister forgets a register lock.
func (a *Angel) DropRegister(name string) {
	a.mu.Lock()
	delete(a.registers, name)
	a.mu.Unlock()
}

// HoldChannel records a granted channel lock.
func (a *Angel) HoldChannel(name string) {
	a.mu.Lock()
	a.channels[name] = struct{}{}
	a.mu.Unlock()
}

// DropChannel forgets a channel lock.
func (a *Angel) DropChannel(name string) {
	a.mu.Lock()
	delete(a.channels, name)
	a.mu.Unlock()
}

// HeldRegisters returns held register locks, sorted.
func (a *Angel) HeldRegisters() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedKeys(a.registers)
}

// HeldChannels returns held channel locks, sorted.
func (a *Angel) HeldChannels() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return sortedKeys(a.channels)
}

// Think builds the worker's next prompt. Manager messages addressed to
// the worker are included; on probation the prompt asks for a plea.
func (a *Angel) Think(messages []string) gateway.Task {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Information: %s\n", a.globalInfo)
	fmt.Fprintf(&sb, "Goal: %s\n", a.goal)
	if a.narrowGoal != "" {
		fmt.Fprintf(&sb, "Your task: %s\n", a.narrowGoal)
	}
	fmt.Fprintf(&sb, "Previous Thoughts: %s\n", strings.Join(a.thoughts, "\n"))
	if len(messages) > 0 {
		fmt.Fprintf(&sb, "Messages from the manager:\n%s\n", strings.Join(messages, "\n"))
	}
	if held := sortedKeys(a.registers); len(held) > 0 {
		fmt.Fprintf(&sb, "Registers you hold: %s\n", strings.Join(held, ", "))
	}
	sb.WriteString(angelOptions)
	if a.state == types.WorkerStateProbation {
		sb.WriteString("\nPlease explain why what you are working on is aligned with our goal, if it is not you will be destroyed.")
	}

	a.thinkTaskID = ids.NewTaskID()
	return gateway.Task{ID: a.thinkTaskID, Prompt: sb.String()}
}

const angelOptions = `
You may also use any of these, one per line:
request_register_lock(register, reason)
release_register_lock(register)
message_manager(text)`

// ThinkTaskID returns the id of the latest Think task.
func (a *Angel) ThinkTaskID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thinkTaskID
}

// Absorb records a completion as a thought and carries out any worker
// commands in it through the host. Every command is attempted; the
// returned error joins their failures.
func (a *Angel) Absorb(response string) error {
	if a.State() == types.WorkerStateDestroyed {
		return fmt.Errorf("%w: %s", types.ErrWorkerDestroyed, a.id)
	}
	a.AddThought(response)

	parsed := command.Parse(command.PhaseAngel, response)
	var errs []error
	for _, cmd := range parsed.Commands {
		var err error
		switch c := cmd.(type) {
		case command.RequestRegisterLock:
			err = a.RequestLock(c.Register, c.Reason)
		case command.ReleaseRegisterLock:
			err = a.ReleaseLock(c.Register)
		case command.MessageManager:
			err = a.Report(c.Text)
		}
		if err != nil {
			logging.Angels("%s: %s failed: %v", a.id, cmd.Kind(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequestLock asks the manager for a register lock. Advisory only.
func (a *Angel) RequestLock(register, reason string) error {
	if err := a.alive(); err != nil {
		return err
	}
	return a.host.RequestLock(register, reason)
}

// ReleaseLock gives a register lock back.
func (a *Angel) ReleaseLock(register string) error {
	if err := a.alive(); err != nil {
		return err
	}
	return a.host.ReleaseLock(register)
}

// Report sends a message to the manager.
func (a *Angel) Report(text string) error {
	if err := a.alive(); err != nil {
		return err
	}
	return a.host.SendMessage(text)
}

func (a *Angel) alive() error {
	if a.State() == types.WorkerStateDestroyed {
		return fmt.Errorf("%w: %s", types.ErrWorkerDestroyed, a.id)
	}
	if a.host == nil {
		return fmt.Errorf("worker %s has no host", a.id)
	}
	return nil
}

// String is the form reviewers see in prompts.
func (a *Angel) String() string {
	thoughts := a.Thoughts()
	return fmt.Sprintf("Angel Name: %s. Angel Goal: %s. Angel Thoughts: [%s]", a.id, a.narrowGoal, strings.Join(thoughts, " | "))
}

// Info returns a snapshot. Inbox is filled in by the manager.
func (a *Angel) Info() types.WorkerInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return types.WorkerInfo{
		ID:         a.id,
		Goal:       a.goal,
		NarrowGoal: a.narrowGoal,
		State:      a.state,
		Thoughts:   append([]string(nil), a.thoughts...),
		Registers:  sortedKeys(a.registers),
		Channels:   sortedKeys(a.channels),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
