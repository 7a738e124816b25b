// Package ids generates worker names and completion task ids.
package ids

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

var adverbs = []string{
	"accidentally", "always", "angrily", "annually", "anxiously", "awkwardly", "badly", "blindly",
	"boastfully", "boldly", "bravely", "brightly", "cheerfully", "deftly", "deliberately", "devotedly",
	"doubtfully", "dramatically", "dutifully", "eagerly", "elegantly", "enormously", "enthusiastically",
	"equally", "eventually", "exactly", "faithfully", "fortunately", "frequently", "generously", "gently",
	"gladly", "gracefully",
}

var adjectives = []string{
	"adaptable", "adventurous", "affectionate", "ambitious", "amiable", "compassionate", "considerate",
	"courageous", "courteous", "diligent", "empathetic", "exuberant", "frank", "generous", "gregarious",
	"impartial", "intuitive", "inventive", "passionate", "persistent", "philosophical", "practical",
	"rational", "reliable", "resourceful", "sensible", "sincere", "sympathetic", "unassuming", "witty",
}

var angelNames = []string{
	"Michael", "Gabriel", "Raphael", "Uriel", "Castiel", "Lucifer", "Raguel", "Sariel", "Remiel",
	"Jeremiel", "Barachiel", "Kokabiel", "Tzaphqiel", "Haniel", "Azrael", "Metatron", "Sandalphon",
	"Jophiel", "Zadkiel", "Raziel", "Chamuel", "Zaphkiel", "Zerachiel", "Zophiel", "Zuriel",
}

// DefaultNameTries is how many random draws NameGenerator makes before giving up.
const DefaultNameTries = 3

// NameGenerator produces names like "BravelyWittyGabriel", unique per generator.
type NameGenerator struct {
	mu    sync.Mutex
	used  map[string]struct{}
	tries int
	pick  func(n int) int
}

// NewNameGenerator returns a generator backed by math/rand.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{
		used:  make(map[string]struct{}),
		tries: DefaultNameTries,
		pick:  rand.IntN,
	}
}

// Possible returns the size of the name space.
func (g *NameGenerator) Possible() int {
	return len(adverbs) * len(adjectives) * len(angelNames)
}

// Generate returns a fresh name, or an error after DefaultNameTries collisions.
func (g *NameGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < g.tries; i++ {
		name := capitalize(adverbs[g.pick(len(adverbs))]) +
			capitalize(adjectives[g.pick(len(adjectives))]) +
			angelNames[g.pick(len(angelNames))]
		if _, taken := g.used[name]; !taken {
			g.used[name] = struct{}{}
			return name, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique name after %d tries", g.tries)
}

// Reserve marks name as taken so Generate never returns it.
// Returns false if it was already taken.
func (g *NameGenerator) Reserve(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.used[name]; taken {
		return false
	}
	g.used[name] = struct{}{}
	return true
}

// ValidName reports whether name can be used for a worker. Evaluator verdicts
// are whitespace-separated name lists, so a name must be a single token.
func ValidName(name string) bool {
	return name != "" && !strings.ContainsFunc(name, unicode.IsSpace)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// NewTaskID returns a random completion task id.
func NewTaskID() string {
	return uuid.NewString()
}
