// Package gesture turns detected hands into ranked gesture labels and
// resolves them into the two display slots.
package gesture

import (
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// Template is a named static hand pose.
type Template struct {
	ID        string             // Unique identifier for the template
	Name      string             // Label reported when the template matches
	Landmarks []detector.Point3D // Normalized landmarks
	Tolerance float64            // Maximum summed distance for a match
}

// Match is one template matched against one hand.
type Match struct {
	Template *Template
	Score    float64 // 1/(1+distance), higher is better
	Distance float64
}

// StaticMatcher matches hand poses against registered templates. It is safe
// for concurrent use; templates can be replaced while inference runs.
type StaticMatcher struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewStaticMatcher creates a new StaticMatcher instance.
func NewStaticMatcher() *StaticMatcher {
	return &StaticMatcher{}
}

// AddTemplate adds a gesture template to the matcher.
func (m *StaticMatcher) AddTemplate(t *Template) {
	if t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, t)
}

// SetTemplates replaces every template.
func (m *StaticMatcher) SetTemplates(ts []*Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append([]*Template(nil), ts...)
}

// RemoveTemplate removes a template by its ID.
func (m *StaticMatcher) RemoveTemplate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered templates.
func (m *StaticMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates)
}

// Match returns the templates within tolerance of hand, best first. Ties
// keep registration order.
func (m *StaticMatcher) Match(hand detector.HandLandmarks) []Match {
	norm := hand.Normalize()
	input := norm.Points[:]

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, t := range m.templates {
		d := summedDistance(input, t.Landmarks)
		if d > t.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: t,
			Score:    1.0 / (1.0 + d),
			Distance: d,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// summedDistance adds up per-landmark distances over the common prefix.
func summedDistance(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))

	var total float64
	for i := 0; i < n; i++ {
		total += a[i].Distance(b[i])
	}
	return total
}
