package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chuck/internal/command"
	"chuck/internal/logging"
	"chuck/internal/tracing"
	"chuck/internal/types"
)

// =============================================================================
// DECISION CYCLE
// =============================================================================
//
// A tick runs three phases strictly in order, each one completion round
// trip. Later phases read state the earlier ones changed.
//
// Failure policy per phase:
//   - completion failure: the phase is skipped
//   - contract error while applying: the rest of the phase is abandoned
//   - parse failure: logged, the line is skipped
//
// The tick counter advances regardless; a failed phase is retried next tick.

// tickPhases is the fixed phase order.
var tickPhases = []command.Phase{
	command.PhaseWorkers,
	command.PhaseRegisters,
	command.PhaseCommunication,
}

// PhaseReport describes one phase of a tick.
type PhaseReport struct {
	Phase    command.Phase
	Applied  int
	Failures []command.ParseFailure
	Err      error
}

// TickReport describes a whole tick.
type TickReport struct {
	Tick   int
	Phases []PhaseReport
}

// Tick runs one decision cycle. The error joins every phase failure.
func (m *Manager) Tick(ctx context.Context) (TickReport, error) {
	m.mu.RLock()
	tick := m.tick
	m.mu.RUnlock()

	ctx, span := m.tracer.Start(ctx, tracing.SpanTick,
		trace.WithAttributes(attribute.Int(tracing.AttrTick, tick)))
	defer span.End()

	logging.Manager("Tick %d starting (%d workers, %d registers)", tick, len(m.Workers()), m.bank.Len())

	report := TickReport{Tick: tick}
	var errs []error
	for _, phase := range tickPhases {
		pr := m.runPhase(ctx, phase)
		report.Phases = append(report.Phases, pr)
		if pr.Err != nil {
			errs = append(errs, fmt.Errorf("%s phase: %w", phase, pr.Err))
		}
	}

	m.mu.Lock()
	m.tick++
	m.notes = make(map[string]string)
	m.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logging.ManagerWarn("Tick %d finished with errors: %v", tick, err)
	} else {
		logging.Manager("Tick %d finished", tick)
	}
	return report, err
}

func (m *Manager) runPhase(ctx context.Context, phase command.Phase) PhaseReport {
	ctx, span := m.tracer.Start(ctx, tracing.SpanPhasePrefix+phase.String(),
		trace.WithAttributes(attribute.String(tracing.AttrPhase, phase.String())))
	defer span.End()

	pr := PhaseReport{Phase: phase}

	resp, err := m.llm.Complete(ctx, m.phasePrompt(phase))
	if err != nil {
		logging.ManagerError("%s phase: completion failed: %v", phase, err)
		span.SetStatus(codes.Error, err.Error())
		pr.Err = err
		return pr
	}
	logging.ManagerDebug("%s phase response:\n%s", phase, resp)

	parsed := command.Parse(phase, resp)
	pr.Failures = parsed.Failures

	for _, cmd := range parsed.Commands {
		err := m.Apply(cmd)
		if err == nil {
			pr.Applied++
			continue
		}
		if types.IsContractError(err) {
			logging.ManagerError("%s phase: %s failed, abandoning phase: %v", phase, cmd.Kind(), err)
			span.SetStatus(codes.Error, err.Error())
			pr.Err = fmt.Errorf("%s: %w", cmd.Kind(), err)
			break
		}
		logging.ManagerWarn("%s phase: %s skipped: %v", phase, cmd.Kind(), err)
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrCommands, pr.Applied),
		attribute.Int(tracing.AttrFailures, len(pr.Failures)),
	)
	return pr
}

// Apply carries out one command against the manager's tables.
func (m *Manager) Apply(cmd command.Command) error {
	switch c := cmd.(type) {
	case command.SpawnWorker:
		_, err := m.Spawn(c.Goal)
		return err
	case command.KillWorker:
		return m.Kill(c.Name)
	case command.CreateRegister:
		return m.CreateRegister(c.Name, c.Description, c.Capacity)
	case command.ConsolidateRegisters:
		return m.ConsolidateRegisters(c.Sources, c.NewName)
	case command.DeleteRegister:
		return m.DeleteRegister(c.Name)
	case command.GrantRegisterLock:
		return m.GrantRegisterLock(c.Register, c.Worker)
	case command.ForceReleaseRegisterLock:
		return m.ForceReleaseRegisterLock(c.Register)
	case command.SendMessage:
		return m.SendMessage(c.Worker, c.Text)
	default:
		return fmt.Errorf("command %s cannot be applied by the manager", cmd.Kind())
	}
}

// =============================================================================
// PROMPTS
// =============================================================================

var phaseOptions = map[command.Phase]string{
	command.PhaseWorkers: `1. spawn_worker(goal)
A worker is created with the given goal. It thinks about its goal and reports back.
2. kill_worker(name)
The worker with the given name is destroyed and its locks are released.`,

	command.PhaseRegisters: `1. create_register(name, description[, capacity])
A register is created for storing information that might be useful to workers.
2. consolidate_registers([names...], new_name)
The listed registers are merged, in order, into a new register. The old registers are deleted.
3. delete_register(name)
The register with the given name is deleted.`,

	command.PhaseCommunication: `1. grant_register_lock(register, worker)
The register is locked to the worker. Only the holder can write to a register.
2. force_release_register_lock(register)
The register's lock is taken back from its holder.
3. send_message(worker, text)
The worker is sent the given message.`,
}

var phaseExamples = map[command.Phase]string{
	command.PhaseWorkers: `spawn_worker("Figure out what we should do with the new information")
spawn_worker("Where can we find more information on this topic?")
kill_worker("BravelyWittyMichael")`,

	command.PhaseRegisters: `create_register("thoughts", "A register to store thoughts")
consolidate_registers(["favorite_exercises", "favorite_foods"], "favorite_things")
delete_register("fish")`,

	command.PhaseCommunication: `grant_register_lock("thoughts", "BravelyWittyMichael")
force_release_register_lock("project_facts")
send_message("BravelyWittyMichael", "What do you think about the new information?")`,
}

var phaseExtra = map[command.Phase]string{
	command.PhaseWorkers:       "Do not include any extraneous information. Do not give workers the same task.",
	command.PhaseRegisters:     "Do not include any extraneous information.",
	command.PhaseCommunication: "Do not include any extraneous information. Do not send a message with no purpose.",
}

func (m *Manager) phasePrompt(phase command.Phase) string {
	snap := m.Snapshot()

	var sb strings.Builder
	sb.WriteString("Context:\n")
	fmt.Fprintf(&sb, "GOAL: %s\n", snap.Goal)

	switch phase {
	case command.PhaseWorkers:
		writeWorkers(&sb, snap.Workers)
		writeNotes(&sb, snap.Notes)
	case command.PhaseRegisters:
		writeRegisters(&sb, snap.Registers)
		writeThoughts(&sb, snap.Workers)
	case command.PhaseCommunication:
		writeWorkers(&sb, snap.Workers)
		writeRegisters(&sb, snap.Registers)
		writeNotes(&sb, snap.Notes)
	}

	sb.WriteString("\nChoose from options, can choose multiple, one per line:\n")
	sb.WriteString(phaseOptions[phase])
	sb.WriteString("\n\nExample response:\n")
	sb.WriteString(phaseExamples[phase])
	sb.WriteString("\n\n")
	sb.WriteString(phaseExtra[phase])
	return sb.String()
}

func writeWorkers(sb *strings.Builder, workers []types.WorkerInfo) {
	sb.WriteString("WORKERS:\n")
	if len(workers) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, w := range workers {
		fmt.Fprintf(sb, "- %s [%s] goal: %s", w.ID, w.State, w.NarrowGoal)
		if len(w.Registers) > 0 {
			fmt.Fprintf(sb, "; holds: %s", strings.Join(w.Registers, ", "))
		}
		sb.WriteString("\n")
	}
}

func writeRegisters(sb *strings.Builder, registers []types.RegisterInfo) {
	sb.WriteString("REGISTERS:\n")
	if len(registers) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, r := range registers {
		fmt.Fprintf(sb, "- %s: %s [%d/%d]", r.Name, r.Description, len([]rune(r.Content)), r.Capacity)
		if r.Holder != "" {
			fmt.Fprintf(sb, " locked by %s", r.Holder)
		}
		sb.WriteString("\n")
	}
}

func writeThoughts(sb *strings.Builder, workers []types.WorkerInfo) {
	sb.WriteString("WORKER IDEAS:\n")
	for _, w := range workers {
		if n := len(w.Thoughts); n > 0 {
			fmt.Fprintf(sb, "- %s: %s\n", w.ID, w.Thoughts[n-1])
		}
	}
}

func writeNotes(sb *strings.Builder, notes map[string]string) {
	sb.WriteString("MESSAGES FROM WORKERS:\n")
	for _, k := range sortedNoteKeys(notes) {
		fmt.Fprintf(sb, "- %s: %s\n", k, notes[k])
	}
}
