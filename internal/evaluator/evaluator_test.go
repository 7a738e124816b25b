package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chuck/internal/angel"
	"chuck/internal/types"
)

func crew(t *testing.T) []*angel.Angel {
	t.Helper()
	a := angel.New("Michael", "goal", "plan workouts", "", 0, nil)
	b := angel.New("Gabriel", "goal", "design logo", "", 0, nil)
	c := angel.New("Raphael", "goal", "write copy", "", 0, nil)
	require.NoError(t, c.MarkProbation())
	c.AddThought("I am essential because copy sells the app")
	return []*angel.Angel{a, b, c}
}

func TestExamineTaskCoversActiveWorkersOnly(t *testing.T) {
	workers := crew(t)
	task, ok := New("Create a new fitness app.", "").ExamineTask(workers)
	require.True(t, ok)
	assert.NotEmpty(t, task.ID)
	assert.Contains(t, task.Prompt, "Our goal is to Create a new fitness app.")
	assert.Contains(t, task.Prompt, "Angel Name: Michael")
	assert.Contains(t, task.Prompt, "Angel Name: Gabriel")
	assert.NotContains(t, task.Prompt, "Angel Name: Raphael")
}

func TestPleaTaskCoversProbationOnly(t *testing.T) {
	workers := crew(t)
	task, ok := New("goal", "").PleaTask(workers)
	require.True(t, ok)
	assert.Contains(t, task.Prompt, "Angel Name: Raphael")
	assert.Contains(t, task.Prompt, "copy sells the app")
	assert.NotContains(t, task.Prompt, "Angel Name: Michael")

	_, ok = New("goal", "").PleaTask(workers[:2])
	assert.False(t, ok, "no probationary workers, no task")
}

func TestExamineTaskEmpty(t *testing.T) {
	_, ok := New("goal", "").ExamineTask(nil)
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	got := Names("'Michael Gabriel.' Uriel Michael", []string{"Michael", "Gabriel", "Raphael"})
	assert.Equal(t, []string{"Michael", "Gabriel"}, got)
	assert.Empty(t, Names("", []string{"Michael"}))
}

func TestProbationThenCondemnation(t *testing.T) {
	workers := crew(t)

	examined := ToExamine("Gabriel Raphael", workers)
	assert.Equal(t, []string{"Gabriel"}, examined, "already on probation is not re-examined")

	marked := MarkForProbation(workers, examined)
	assert.Equal(t, []string{"Gabriel"}, marked)
	assert.Equal(t, types.WorkerStateProbation, workers[1].State())
	assert.Equal(t, types.WorkerStateActive, workers[0].State())

	condemned := Condemned("Raphael Michael", workers)
	assert.Equal(t, []string{"Raphael"}, condemned, "only probationary workers can be condemned")
}

func TestMarkForProbationSkipsDestroyed(t *testing.T) {
	w := angel.New("Uriel", "goal", "", "", 0, nil)
	w.Destroy()
	assert.Empty(t, MarkForProbation([]*angel.Angel{w}, []string{"Uriel"}))
	assert.Equal(t, types.WorkerStateDestroyed, w.State())
}
