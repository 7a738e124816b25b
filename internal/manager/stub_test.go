package manager

import (
	"context"
	"strings"
	"sync"

	"chuck/internal/gateway"
)

// stubLLM answers by prompt kind and records what it was asked.
type stubLLM struct {
	mu      sync.Mutex
	respond func(kind, prompt string) (string, error)
	prompts []string
	batches [][]gateway.Task
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.respond(promptKind(prompt), prompt)
}

func (s *stubLLM) CompleteBatch(ctx context.Context, tasks []gateway.Task) (map[string]string, error) {
	s.mu.Lock()
	s.batches = append(s.batches, tasks)
	s.mu.Unlock()

	out := make(map[string]string, len(tasks))
	for _, task := range tasks {
		text, err := s.respond(promptKind(task.Prompt), task.Prompt)
		if err != nil {
			return nil, &gateway.GatewayError{Op: "complete_batch", TaskID: task.ID, Attempts: 1, Err: err}
		}
		out[task.ID] = text
	}
	return out, nil
}

func promptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "1. spawn_worker(goal)"):
		return "workers"
	case strings.Contains(prompt, "1. create_register("):
		return "registers"
	case strings.Contains(prompt, "1. grant_register_lock("):
		return "communication"
	case strings.Contains(prompt, "plea for life"):
		return "plea"
	case strings.Contains(prompt, "Which should be examined"):
		return "examine"
	case strings.Contains(prompt, "need more angels"):
		return "spawner"
	case strings.Contains(prompt, "Previous Thoughts"):
		return "angel"
	default:
		return "unknown"
	}
}

// byKind builds a responder from fixed answers; missing kinds answer "".
func byKind(answers map[string]string) func(kind, prompt string) (string, error) {
	return func(kind, prompt string) (string, error) {
		return answers[kind], nil
	}
}
