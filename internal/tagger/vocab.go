package tagger

import (
	"strings"
	"sync"
)

// Vocabulary is the process-wide ordered set of labels assigned so
// far. It is append-only: labels are never removed or evicted, so it
// grows for the lifetime of the process.
type Vocabulary struct {
	mu     sync.RWMutex
	labels []string
	index  map[string]struct{}
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]struct{})}
}

// Canonical normalizes a label before any membership check. The
// source system compared raw strings, which let the model's formatting
// drift mint near-duplicate labels; trimming and lower-casing here is
// a deliberate deviation.
func Canonical(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func (v *Vocabulary) Contains(label string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.index[Canonical(label)]
	return ok
}

// Add appends a label if it is not already present. Returns true when
// the label was new.
func (v *Vocabulary) Add(label string) bool {
	c := Canonical(label)
	if c == "" {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.index[c]; ok {
		return false
	}
	v.labels = append(v.labels, c)
	v.index[c] = struct{}{}
	return true
}

// Snapshot returns the labels in insertion order.
func (v *Vocabulary) Snapshot() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.labels)
}
