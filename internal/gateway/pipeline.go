package gateway

import (
	"context"
	"sync"

	"chuck/internal/logging"
)

// Batcher runs a batch of tagged prompts.
type Batcher interface {
	CompleteBatch(ctx context.Context, tasks []Task) (map[string]string, error)
}

// Pipeline queues tasks for one batched round and keeps the latest results.
// Each successful Run advances the day counter.
type Pipeline struct {
	batcher Batcher

	mu      sync.Mutex
	queue   []Task
	results map[string]string
	day     int
}

// NewPipeline creates an empty pipeline over b.
func NewPipeline(b Batcher) *Pipeline {
	return &Pipeline{
		batcher: b,
		results: make(map[string]string),
	}
}

// Add queues a task for the next Run.
func (p *Pipeline) Add(id, prompt string) {
	p.AddTask(Task{ID: id, Prompt: prompt})
}

// AddTask queues a task for the next Run.
func (p *Pipeline) AddTask(task Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, task)
}

// Pending returns the number of queued tasks.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Run sends the queue as one batch. The queue is emptied either way;
// on failure the previous results are dropped and the day does not advance.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	tasks := p.queue
	p.queue = nil
	day := p.day
	p.mu.Unlock()

	logging.API("Running pipeline with %d tasks, day %d", len(tasks), day)

	results, err := p.batcher.CompleteBatch(ctx, tasks)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.results = make(map[string]string)
		return err
	}
	p.results = results
	p.day++
	logging.APIDebug("Pipeline finished day %d", day)
	return nil
}

// Lookup returns the latest result for id.
func (p *Pipeline) Lookup(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.results[id]
	return text, ok
}

// Day returns the number of successful runs.
func (p *Pipeline) Day() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day
}
