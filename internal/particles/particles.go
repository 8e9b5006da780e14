// Package particles generates the decorative items that drift up behind the
// page content. Generation is deterministic for a seed so a page renders the
// same field on every request until the seed changes.
package particles

import (
	"fmt"
	"html/template"
	"math/rand/v2"
)

// Icon is a particle glyph.
type Icon string

const (
	Leaf   Icon = "leaf"
	Kulhad Icon = "kulhad"
	Steam  Icon = "steam"
	Cookie Icon = "cookie"
)

// Icons lists every glyph in selection order.
var Icons = []Icon{Leaf, Kulhad, Steam, Cookie}

// DefaultCount is the number of particles on the page.
const DefaultCount = 25

// Particle is one floating item. Times are seconds, sizes pixels.
type Particle struct {
	ID       int
	Icon     Icon
	Left     float64 // percent of viewport width
	Duration float64
	Delay    float64 // negative, so the item is already mid-flight on load
	Sway     float64
	Size     float64
	Opacity  float64
	Clay     bool
}

// Generate returns count particles drawn from seed.
func Generate(count int, seed uint64) []Particle {
	if count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Particle, count)
	for i := range out {
		out[i] = Particle{
			ID:       i,
			Icon:     Icons[rng.IntN(len(Icons))],
			Left:     rng.Float64() * 100,
			Duration: 15 + rng.Float64()*20,
			Delay:    -(rng.Float64() * 30),
			Sway:     20 + rng.Float64()*50,
			Size:     30 + rng.Float64()*40,
			Opacity:  0.15 + rng.Float64()*0.25,
			Clay:     rng.Float64() > 0.6,
		}
	}
	return out
}

// Style renders the particle's CSS custom properties; the stylesheet drives
// the animation from them.
func (p Particle) Style() template.CSS {
	return template.CSS(fmt.Sprintf(
		"left:%.2f%%;width:%.1fpx;height:%.1fpx;--rise:%.2fs;--sway-time:%.2fs;--delay:%.2fs;--sway:%.1fpx;--peak:%.3f",
		p.Left, p.Size, p.Size, p.Duration, p.Duration/2, p.Delay, p.Sway, p.Opacity,
	))
}

// Class returns the CSS classes for the particle's glyph and colour.
func (p Particle) Class() string {
	tone := "particle--pale"
	if p.Clay {
		tone = "particle--clay"
	}
	return "particle particle--" + string(p.Icon) + " " + tone
}
