// Package manager implements Chuck, the coordinator that owns every
// register, lock, worker and message queue, and drives them from model
// responses.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"chuck/internal/angel"
	"chuck/internal/evaluator"
	"chuck/internal/gateway"
	"chuck/internal/ids"
	"chuck/internal/logging"
	"chuck/internal/register"
	"chuck/internal/spawner"
	"chuck/internal/types"
)

// SelfNote is the notes key for messages the manager leaves itself.
const SelfNote = "self"

// Completer is the slice of the gateway the manager uses.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteBatch(ctx context.Context, tasks []gateway.Task) (map[string]string, error)
}

// Config configures a Manager.
type Config struct {
	Goal            string
	GlobalInfo      string // shared background handed to workers and helpers
	DefaultCapacity int
	ThoughtDepth    int
	InboxSize       int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Goal:            "Create a new fitness app.",
		DefaultCapacity: register.DefaultCapacity,
		ThoughtDepth:    angel.DefaultThoughtDepth,
		InboxSize:       10,
	}
}

// Manager owns the register table, the lock tables, the worker table,
// per-worker message queues and worker notes. Nothing else mutates them.
type Manager struct {
	config Config
	llm    Completer
	tracer trace.Tracer

	bank      *register.Bank
	names     *ids.NameGenerator
	evaluator *evaluator.Evaluator
	spawner   *spawner.Spawner
	pipeline  *gateway.Pipeline

	mu           sync.RWMutex
	workers      map[string]*angel.Angel
	order        []string            // spawn order
	inbox        map[string][]string // worker -> messages from the manager
	notes        map[string]string   // worker -> latest message to the manager
	channelLocks map[string]string   // channel -> holder
	tick         int
}

// Option customizes a Manager.
type Option func(*Manager)

// WithTracer sets the tracer used for tick and phase spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithNameGenerator replaces the worker name generator.
func WithNameGenerator(g *ids.NameGenerator) Option {
	return func(m *Manager) {
		if g != nil {
			m.names = g
		}
	}
}

// New creates a manager. Zero config fields fall back to DefaultConfig.
func New(config Config, llm Completer, opts ...Option) *Manager {
	defaults := DefaultConfig()
	if config.Goal == "" {
		config.Goal = defaults.Goal
	}
	if config.DefaultCapacity <= 0 {
		config.DefaultCapacity = defaults.DefaultCapacity
	}
	if config.ThoughtDepth <= 0 {
		config.ThoughtDepth = defaults.ThoughtDepth
	}
	if config.InboxSize <= 0 {
		config.InboxSize = defaults.InboxSize
	}

	logging.Manager("Creating manager for goal %q", config.Goal)
	m := &Manager{
		config:       config,
		llm:          llm,
		tracer:       noop.NewTracerProvider().Tracer("noop"),
		bank:         register.NewBank(config.DefaultCapacity),
		names:        ids.NewNameGenerator(),
		evaluator:    evaluator.New(config.Goal, config.GlobalInfo),
		spawner:      spawner.New(config.Goal, config.GlobalInfo),
		pipeline:     gateway.NewPipeline(llm),
		workers:      make(map[string]*angel.Angel),
		inbox:        make(map[string][]string),
		notes:        make(map[string]string),
		channelLocks: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Goal returns the shared goal.
func (m *Manager) Goal() string {
	return m.config.Goal
}

// TickCount returns the number of completed ticks.
func (m *Manager) TickCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tick
}

// Day returns the number of completed review rounds.
func (m *Manager) Day() int {
	return m.pipeline.Day()
}

// =============================================================================
// WORKERS
// =============================================================================

// Spawn creates a worker with a generated name and the given narrow goal.
func (m *Manager) Spawn(goal string) (*angel.Angel, error) {
	name, err := m.names.Generate()
	if err != nil {
		return nil, err
	}
	return m.spawn(name, goal)
}

// SpawnNamed creates a worker with a caller-chosen name.
func (m *Manager) SpawnNamed(name, goal string) (*angel.Angel, error) {
	if !ids.ValidName(name) {
		return nil, fmt.Errorf("invalid worker name %q: must be a single word", name)
	}
	m.names.Reserve(name)
	return m.spawn(name, goal)
}

func (m *Manager) spawn(name, goal string) (*angel.Angel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.workers[name]; exists {
		return nil, fmt.Errorf("%w: worker %q", types.ErrDuplicateName, name)
	}
	a := angel.New(name, m.config.Goal, goal, m.config.GlobalInfo, m.config.ThoughtDepth, &host{m: m, worker: name})
	m.workers[name] = a
	m.order = append(m.order, name)
	logging.Angels("Spawned %s with goal %q", name, goal)
	return a, nil
}

// Kill destroys a worker. Every register and channel lock it holds is
// released before the worker record is removed.
func (m *Manager) Kill(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.workers[name]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownWorker, name)
	}
	logging.AngelsDebug("Killing %s", name)

	held := make(map[string]struct{})
	for _, r := range a.HeldRegisters() {
		held[r] = struct{}{}
	}
	for _, r := range m.bank.LockedBy(name) {
		held[r] = struct{}{}
	}
	for r := range held {
		if _, err := m.bank.ForceRelease(r); err != nil {
			logging.RegistersDebug("Release of %s for %s: %v", r, name, err)
		}
		a.DropRegister(r)
	}
	for channel, holder := range m.channelLocks {
		if holder == name {
			delete(m.channelLocks, channel)
			a.DropChannel(channel)
		}
	}

	a.Destroy()
	delete(m.workers, name)
	delete(m.inbox, name)
	delete(m.notes, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	logging.Angels("Killed %s", name)
	return nil
}

// Worker returns the named live worker.
func (m *Manager) Worker(name string) (*angel.Angel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.workers[name]
	return a, ok
}

// Workers returns live workers in spawn order.
func (m *Manager) Workers() []*angel.Angel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*angel.Angel, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.workers[name])
	}
	return out
}

func (m *Manager) liveWorker(name string) (*angel.Angel, error) {
	a, ok := m.workers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownWorker, name)
	}
	return a, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// SendMessage queues a message for a worker. The queue keeps the newest
// InboxSize messages.
func (m *Manager) SendMessage(worker, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.liveWorker(worker); err != nil {
		return err
	}
	q := append(m.inbox[worker], text)
	if over := len(q) - m.config.InboxSize; over > 0 {
		q = append([]string(nil), q[over:]...)
	}
	m.inbox[worker] = q
	logging.Manager("Sending message to %s: %s", worker, text)
	return nil
}

// Inbox returns the queued messages for a worker, oldest first.
func (m *Manager) Inbox(worker string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.inbox[worker]...)
}

// Notes returns a copy of the worker-to-manager notes.
func (m *Manager) Notes() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.notes))
	for k, v := range m.notes {
		out[k] = v
	}
	return out
}

func (m *Manager) note(from, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[from] = text
	logging.ManagerDebug("Note from %s: %s", from, text)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot captures all tables.
func (m *Manager) Snapshot() types.Snapshot {
	workers := m.Workers()

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := types.Snapshot{
		Tick:      m.tick,
		Goal:      m.config.Goal,
		Workers:   make([]types.WorkerInfo, 0, len(workers)),
		Registers: m.bank.Infos(),
		Notes:     make(map[string]string, len(m.notes)),
	}
	for _, a := range workers {
		info := a.Info()
		info.Inbox = append([]string(nil), m.inbox[a.ID()]...)
		snap.Workers = append(snap.Workers, info)
	}
	for k, v := range m.notes {
		snap.Notes[k] = v
	}
	return snap
}

func sortedNoteKeys(notes map[string]string) []string {
	keys := make([]string, 0, len(notes))
	for k := range notes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
