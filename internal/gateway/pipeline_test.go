package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_RunLookupDay(t *testing.T) {
	p := NewPipeline(New(echoClient(nil), fastConfig()))
	p.Add("jack", "should we spawn?")
	p.Add("lucifer", "who strays?")
	require.Equal(t, 2, p.Pending())

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 0, p.Pending(), "queue is cleared after a run")
	assert.Equal(t, 1, p.Day())

	text, ok := p.Lookup("jack")
	require.True(t, ok)
	assert.Equal(t, "re: should we spawn?", text)

	_, ok = p.Lookup("nobody")
	assert.False(t, ok)
}

func TestPipeline_RunReplacesResults(t *testing.T) {
	p := NewPipeline(New(echoClient(nil), fastConfig()))
	p.Add("a", "1")
	require.NoError(t, p.Run(context.Background()))

	p.Add("b", "2")
	require.NoError(t, p.Run(context.Background()))

	_, ok := p.Lookup("a")
	assert.False(t, ok, "results belong to the latest run only")
	_, ok = p.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, 2, p.Day())
}

type failingBatcher struct{ err error }

func (f failingBatcher) CompleteBatch(ctx context.Context, tasks []Task) (map[string]string, error) {
	return nil, f.err
}

func TestPipeline_FailedRunKeepsDay(t *testing.T) {
	boom := errors.New("down")
	p := NewPipeline(failingBatcher{err: boom})
	p.Add("a", "1")

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, p.Day())
	assert.Equal(t, 0, p.Pending())
}
