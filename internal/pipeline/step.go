package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/sparkify-dwh/internal/dag"
)

// Phase groups steps. Every step of a phase finishes before any step of a
// later phase starts.
type Phase string

const (
	PhaseSchema     Phase = "schema"
	PhaseIngest     Phase = "ingest"
	PhaseDimensions Phase = "dimensions"
	PhaseFacts      Phase = "facts"
	PhaseVerify     Phase = "verify"
)

var phaseOrder = []Phase{PhaseSchema, PhaseIngest, PhaseDimensions, PhaseFacts, PhaseVerify}

func (p Phase) rank() int {
	for i, phase := range phaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// Step is one unit of pipeline work.
type Step struct {
	Name  string
	Phase Phase
	// Table is the relation the step writes. Its row count is logged and
	// exported when set.
	Table string
	Run   func(ctx context.Context) (int64, error)
}

// Edge orders two steps of the same phase.
type Edge struct {
	From, To string
}

// Waves orders steps into waves. Phases form strict barriers and edges
// order steps inside a phase. Steps inside a wave are sorted by name.
func Waves(steps []Step, edges []Edge) ([][]Step, error) {
	g := dag.New()
	byName := make(map[string]Step, len(steps))
	byPhase := map[Phase][]string{}
	for _, s := range steps {
		if s.Phase.rank() < 0 {
			return nil, fmt.Errorf("step %s has unknown phase %q", s.Name, s.Phase)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate step %s", s.Name)
		}
		byName[s.Name] = s
		byPhase[s.Phase] = append(byPhase[s.Phase], s.Name)
		g.AddNode(s.Name)
	}

	var previous []string
	for _, phase := range phaseOrder {
		current := byPhase[phase]
		if len(current) == 0 {
			continue
		}
		for _, from := range previous {
			for _, to := range current {
				if err := g.AddEdge(from, to); err != nil {
					return nil, err
				}
			}
		}
		previous = current
	}

	for _, e := range edges {
		from, okFrom := byName[e.From]
		to, okTo := byName[e.To]
		if !okFrom || !okTo {
			continue
		}
		if from.Phase != to.Phase {
			return nil, fmt.Errorf("edge %s -> %s crosses phases", e.From, e.To)
		}
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, err
		}
	}

	layers, err := g.Layers()
	if err != nil {
		return nil, err
	}
	waves := make([][]Step, 0, len(layers))
	for _, layer := range layers {
		wave := make([]Step, 0, len(layer))
		for _, name := range layer {
			wave = append(wave, byName[name])
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

func waveNames(wave []Step) string {
	names := make([]string, 0, len(wave))
	for _, s := range wave {
		names = append(names, s.Name)
	}
	return strings.Join(names, ",")
}
