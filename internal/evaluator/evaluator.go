// Package evaluator decides which workers go on probation and which
// probationary workers are destroyed. The model answers both questions
// with a space-separated list of worker names.
package evaluator

import (
	"fmt"
	"strings"

	"chuck/internal/angel"
	"chuck/internal/gateway"
	"chuck/internal/ids"
	"chuck/internal/logging"
	"chuck/internal/types"
)

// Evaluator is known to the model as Lucifer.
type Evaluator struct {
	goal       string
	globalInfo string
}

// New creates an evaluator for the shared goal.
func New(goal, globalInfo string) *Evaluator {
	return &Evaluator{goal: goal, globalInfo: globalInfo}
}

// ExamineTask asks which active workers stray from the goal.
// It returns false when there is no one to examine.
func (e *Evaluator) ExamineTask(workers []*angel.Angel) (gateway.Task, bool) {
	var sb strings.Builder
	e.writeInfo(&sb)
	fmt.Fprintf(&sb, "Our goal is to %s. Carefully review each angel's thoughts and respond with a list of names. "+
		"Which should be examined if they aren't aligned with our goal. "+
		"Your list should be a space separated list of names, e.g. 'Michael Gabriel Raphael'", e.goal)

	n := 0
	for _, w := range workers {
		if w.State() != types.WorkerStateActive {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(w.String())
		n++
	}
	if n == 0 {
		return gateway.Task{}, false
	}
	return gateway.Task{ID: ids.NewTaskID(), Prompt: sb.String()}, true
}

// PleaTask asks which probationary workers' pleas fall short.
// Each worker's plea is the latest entry of its thought log.
func (e *Evaluator) PleaTask(workers []*angel.Angel) (gateway.Task, bool) {
	var sb strings.Builder
	e.writeInfo(&sb)
	fmt.Fprintf(&sb, "Our goal is to %s. Review each angel's plea for life and provide a list of angels whose pleas are "+
		"insufficient given our goal, these angels will be destroyed. "+
		"Your list should be a space separated list of names, e.g. 'Michael Gabriel Raphael'", e.goal)

	n := 0
	for _, w := range workers {
		if !w.OnProbation() {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(w.String())
		n++
	}
	if n == 0 {
		return gateway.Task{}, false
	}
	return gateway.Task{ID: ids.NewTaskID(), Prompt: sb.String()}, true
}

func (e *Evaluator) writeInfo(sb *strings.Builder) {
	if e.globalInfo != "" {
		fmt.Fprintf(sb, "Information: %s\n", e.globalInfo)
	}
}

// Names extracts worker names from a response, keeping only names in
// candidates. Order follows the response; duplicates are dropped.
func Names(response string, candidates []string) []string {
	known := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		known[c] = struct{}{}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(response) {
		name := strings.Trim(field, `"'.,;:!?()[]`+"`")
		if _, ok := known[name]; !ok {
			if name != "" {
				logging.EvaluatorDebug("Ignoring unknown name %q", name)
			}
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ToExamine returns the active workers named in an examine response.
func ToExamine(response string, workers []*angel.Angel) []string {
	var candidates []string
	for _, w := range workers {
		if w.State() == types.WorkerStateActive {
			candidates = append(candidates, w.ID())
		}
	}
	return Names(response, candidates)
}

// Condemned returns the probationary workers named in a plea response.
func Condemned(response string, workers []*angel.Angel) []string {
	var candidates []string
	for _, w := range workers {
		if w.OnProbation() {
			candidates = append(candidates, w.ID())
		}
	}
	return Names(response, candidates)
}

// MarkForProbation moves each named worker to probation and returns the
// ones that changed.
func MarkForProbation(workers []*angel.Angel, names []string) []string {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var marked []string
	for _, w := range workers {
		if _, ok := wanted[w.ID()]; !ok || w.State() == types.WorkerStateProbation {
			continue
		}
		if err := w.MarkProbation(); err != nil {
			logging.Evaluator("Cannot mark %s: %v", w.ID(), err)
			continue
		}
		marked = append(marked, w.ID())
	}
	if len(marked) > 0 {
		logging.Evaluator("Placed on probation: %s", strings.Join(marked, " "))
	}
	return marked
}
