package manager

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chuck/internal/evaluator"
	"chuck/internal/gateway"
	"chuck/internal/logging"
	"chuck/internal/spawner"
	"chuck/internal/tracing"
	"chuck/internal/types"
)

// ReviewReport describes one review round.
type ReviewReport struct {
	Day       int
	Thoughts  int
	Condemned []string
	Probation []string
	Spawned   []string
}

// Review runs one review round as a single batch: the spawner's decision,
// the evaluator's examination and plea hearing, and every worker's next
// thought. Results are applied in this order: thoughts, destruction of
// condemned workers, new probations, new workers.
func (m *Manager) Review(ctx context.Context) (ReviewReport, error) {
	day := m.pipeline.Day()
	ctx, span := m.tracer.Start(ctx, tracing.SpanReview,
		trace.WithAttributes(attribute.Int(tracing.AttrTick, day)))
	defer span.End()

	report := ReviewReport{Day: day}
	workers := m.Workers()

	decide := m.spawner.DecideTask(workers)
	m.pipeline.AddTask(decide)

	var examine, plea gateway.Task
	var hasExamine, hasPlea bool
	if len(workers) == 0 {
		logging.Manager("No workers to evaluate")
	} else {
		examine, hasExamine = m.evaluator.ExamineTask(workers)
		if hasExamine {
			m.pipeline.AddTask(examine)
		}
		plea, hasPlea = m.evaluator.PleaTask(workers)
		if hasPlea {
			m.pipeline.AddTask(plea)
		}
		for _, w := range workers {
			m.pipeline.AddTask(w.Think(m.Inbox(w.ID())))
		}
	}

	if err := m.pipeline.Run(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		logging.ManagerError("Review round failed: %v", err)
		return report, err
	}

	for _, w := range workers {
		text, ok := m.pipeline.Lookup(w.ThinkTaskID())
		if !ok {
			continue
		}
		if err := w.Absorb(text); err != nil {
			logging.AngelsDebug("%s: %v", w.ID(), err)
		}
		report.Thoughts++
	}

	var errs []error
	if hasPlea {
		resp, _ := m.pipeline.Lookup(plea.ID)
		for _, name := range evaluator.Condemned(resp, workers) {
			if err := m.Kill(name); err != nil {
				errs = append(errs, err)
				continue
			}
			report.Condemned = append(report.Condemned, name)
		}
		if len(report.Condemned) > 0 {
			logging.Evaluator("Destroyed: %v", report.Condemned)
		}
	}

	if hasExamine {
		resp, _ := m.pipeline.Lookup(examine.ID)
		report.Probation = evaluator.MarkForProbation(workers, evaluator.ToExamine(resp, workers))
	}

	resp, _ := m.pipeline.Lookup(decide.ID)
	proposals, err := spawner.ParseProposals(resp)
	if err != nil {
		logging.SpawnerWarn("Ignoring proposals: %v", err)
		errs = append(errs, err)
	}
	for _, p := range proposals {
		if _, err := m.SpawnNamed(p.Name, p.Goal); err != nil {
			if errors.Is(err, types.ErrDuplicateName) {
				logging.SpawnerWarn("Rejected proposal %q: %v", p.Name, err)
				continue
			}
			errs = append(errs, err)
			continue
		}
		report.Spawned = append(report.Spawned, p.Name)
	}
	if len(report.Spawned) > 0 {
		logging.Spawner("Spawned: %v", report.Spawned)
	}

	err = errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return report, err
}
