// Package spawner decides whether new workers are needed. The model
// answers with a JSON list of {"name", "goal"} proposals.
package spawner

import (
	"encoding/json"
	"fmt"
	"strings"

	"chuck/internal/angel"
	"chuck/internal/gateway"
	"chuck/internal/ids"
	"chuck/internal/logging"
)

// Proposal is one requested worker.
type Proposal struct {
	Name string `json:"name"`
	Goal string `json:"goal"`
}

// Spawner is known to the model as Jack.
type Spawner struct {
	goal       string
	globalInfo string
}

// New creates a spawner for the shared goal.
func New(goal, globalInfo string) *Spawner {
	return &Spawner{goal: goal, globalInfo: globalInfo}
}

var example = []Proposal{
	{Name: "Castiel", Goal: "Save Dean"},
	{Name: "Michael", Goal: "Defeat Lucifer"},
}

// DecideTask asks whether more workers are needed.
func (s *Spawner) DecideTask(workers []*angel.Angel) gateway.Task {
	exampleJSON, _ := json.Marshal(example)

	var sb strings.Builder
	if s.globalInfo != "" {
		fmt.Fprintf(&sb, "Information: %s\n", s.globalInfo)
	}
	fmt.Fprintf(&sb, "Our goal is to %s. Carefully review each angel's thoughts and decide if we need more angels to tackle our goal. "+
		"If you decide we need more angels, provide a list of the following format:\n%s\n"+
		"Response must be json compliant and fit the format. Angel names must be unique. "+
		"If no new angels are needed respond with [].", s.goal, exampleJSON)
	for _, w := range workers {
		sb.WriteString("\n")
		sb.WriteString(w.String())
	}
	return gateway.Task{ID: ids.NewTaskID(), Prompt: sb.String()}
}

// ParseProposals reads the JSON list between the first '[' and the last
// ']' of response, so code fences and chatter around it are tolerated.
// A response without a list means no proposals. Entries missing a name
// or goal, or a name that is not a single word, are dropped, and so are later
// entries repeating a name.
func ParseProposals(response string) ([]Proposal, error) {
	start := strings.IndexByte(response, '[')
	if start < 0 {
		logging.SpawnerDebug("No proposal list in response")
		return nil, nil
	}
	end := strings.LastIndexByte(response, ']')
	if end < start {
		return nil, fmt.Errorf("proposal list is not terminated")
	}

	var raw []Proposal
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("proposal list is not valid JSON: %w", err)
	}

	var out []Proposal
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		p.Name = strings.TrimSpace(p.Name)
		p.Goal = strings.TrimSpace(p.Goal)
		if p.Name == "" || p.Goal == "" {
			logging.SpawnerWarn("Dropping incomplete proposal %+v", p)
			continue
		}
		if !ids.ValidName(p.Name) {
			logging.SpawnerWarn("Dropping proposal with multi-word name %q", p.Name)
			continue
		}
		if _, dup := seen[p.Name]; dup {
			logging.SpawnerWarn("Dropping duplicate proposal %q", p.Name)
			continue
		}
		seen[p.Name] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
