// Package decor animates a field of drifting particles that bounce inside a
// box. The field is advanced once per display tick and its positions are
// published alongside the composited layers for renderers that draw them.
package decor

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Field geometry. Particles spawn within half the bounds and reverse when
// they pass a wall.
const (
	SpawnWidth  = 14.0
	SpawnHeight = 8.0
	BoundX      = 14.0
	BoundY      = 8.0
	MaxSpeed    = 0.03
)

// Particle is one drifting point.
type Particle struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	VX float64 `json:"-"`
	VY float64 `json:"-"`
}

// Field is a set of particles at a fixed depth.
type Field struct {
	mu        sync.RWMutex
	particles []Particle
	steps     uint64
}

// NewField spawns count particles at depth z. The seed makes the layout
// reproducible.
func NewField(count int, z float64, seed uint64) *Field {
	if count < 0 {
		count = 0
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ps := make([]Particle, count)
	for i := range ps {
		ps[i] = Particle{
			X:  (rng.Float64() - 0.5) * SpawnWidth,
			Y:  (rng.Float64() - 0.5) * SpawnHeight,
			Z:  z,
			VX: (rng.Float64() - 0.5) * 2 * MaxSpeed,
			VY: (rng.Float64() - 0.5) * 2 * MaxSpeed,
		}
	}
	return &Field{particles: ps}
}

// Step advances every particle by its velocity and reverses any velocity
// component whose position has passed a wall.
func (f *Field) Step() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.particles {
		p := &f.particles[i]
		p.X += p.VX
		p.Y += p.VY
		if math.Abs(p.X) > BoundX {
			p.VX = -p.VX
		}
		if math.Abs(p.Y) > BoundY {
			p.VY = -p.VY
		}
	}
	f.steps++
}

// Positions returns a copy of the current particles.
func (f *Field) Positions() []Particle {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Particle, len(f.particles))
	copy(out, f.particles)
	return out
}

// Len returns the number of particles.
func (f *Field) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.particles)
}

// Steps returns how many times the field has advanced.
func (f *Field) Steps() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.steps
}
