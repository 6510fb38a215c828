// Package layout resolves (mode, agent count) pairs into pane trees.
// Resolution is pure: no I/O, and identical inputs always produce
// structurally identical trees.
package layout

import (
	"fmt"

	"github.com/BasicFist/kawaimux/internal/model"
)

// InvalidAgentCountError reports an agent count outside a mode's range.
type InvalidAgentCountError struct {
	Mode  model.Mode
	Count int
	Min   int
	Max   int
}

func (e *InvalidAgentCountError) Error() string {
	return fmt.Sprintf("mode %s supports %d to %d agents, got %d", e.Mode, e.Min, e.Max, e.Count)
}

// Range is the inclusive agent-count range of a mode.
type Range struct {
	Min int
	Max int
}

// Info describes a mode for listings and session setup.
type Info struct {
	Mode        model.Mode
	KawaiiName  string
	Icon        string
	Description string
	Agents      Range
	// Synchronize mirrors typed input to every pane of the session.
	Synchronize bool
}

var modeTable = map[model.Mode]Info{
	model.ModePair: {
		Mode:        model.ModePair,
		KawaiiName:  "Bestie Coding Session",
		Icon:        "👩‍💻",
		Description: "Two agents collaborate in real time on coding tasks",
		Agents:      Range{Min: 2, Max: 2},
		Synchronize: true,
	},
	model.ModeDebate: {
		Mode:        model.ModeDebate,
		KawaiiName:  "Kawaii Debate Theater",
		Icon:        "🎭",
		Description: "Agents engage in structured intellectual discussion",
		Agents:      Range{Min: 3, Max: 4},
	},
	model.ModeTeaching: {
		Mode:        model.ModeTeaching,
		KawaiiName:  "Kawaii Learning Circle",
		Icon:        "👩‍🏫",
		Description: "One agent teaches, the others learn interactively",
		Agents:      Range{Min: 3, Max: 6},
	},
	model.ModeConsensus: {
		Mode:        model.ModeConsensus,
		KawaiiName:  "Harmony Building Circle",
		Icon:        "🤝",
		Description: "All agents work together toward a shared decision",
		Agents:      Range{Min: 3, Max: 5},
		Synchronize: true,
	},
	model.ModeCompetition: {
		Mode:        model.ModeCompetition,
		KawaiiName:  "Kawaii Challenge Arena",
		Icon:        "🏆",
		Description: "Agents take on friendly challenges to push their limits",
		Agents:      Range{Min: 2, Max: 6},
	},
}

// Describe returns the mode's metadata.
func Describe(mode model.Mode) (Info, error) {
	info, ok := modeTable[mode]
	if !ok {
		return Info{}, fmt.Errorf("unknown mode %v", mode)
	}
	return info, nil
}

// Synchronize reports whether panes of the mode share synchronized input.
func Synchronize(mode model.Mode) bool {
	return modeTable[mode].Synchronize
}

// Resolve builds the pane tree for a mode and agent count.
func Resolve(mode model.Mode, agents int) (*model.PaneTree, error) {
	info, ok := modeTable[mode]
	if !ok {
		return nil, fmt.Errorf("unknown mode %v", mode)
	}
	if agents < info.Agents.Min || agents > info.Agents.Max {
		return nil, &InvalidAgentCountError{
			Mode:  mode,
			Count: agents,
			Min:   info.Agents.Min,
			Max:   info.Agents.Max,
		}
	}
	switch mode {
	case model.ModePair:
		return model.Split(model.SplitHorizontal,
			model.Leaf("driver"),
			model.Leaf("navigator"),
		), nil
	case model.ModeDebate:
		return tiled(numbered("agent", agents)), nil
	case model.ModeTeaching:
		// Teacher on top, students tiled below.
		return model.Split(model.SplitVertical,
			model.Leaf("teacher"),
			tiled(numbered("student", agents-1)),
		), nil
	case model.ModeConsensus:
		// Facilitator on the left, voices stacked on the right.
		return model.Split(model.SplitHorizontal,
			model.Leaf("facilitator"),
			column(numbered("voice", agents-1)),
		), nil
	case model.ModeCompetition:
		return tiled(numbered("contender", agents)), nil
	default:
		return nil, fmt.Errorf("unknown mode %v", mode)
	}
}

func numbered(prefix string, n int) []string {
	roles := make([]string, n)
	for i := range roles {
		roles[i] = fmt.Sprintf("%s_%d", prefix, i+1)
	}
	return roles
}

func leaves(roles []string) []*model.PaneTree {
	out := make([]*model.PaneTree, len(roles))
	for i, r := range roles {
		out[i] = model.Leaf(r)
	}
	return out
}

// column stacks roles vertically; a single role degenerates to a leaf.
func column(roles []string) *model.PaneTree {
	if len(roles) == 1 {
		return model.Leaf(roles[0])
	}
	return model.Split(model.SplitVertical, leaves(roles)...)
}

// row places roles side by side; a single role degenerates to a leaf.
func row(roles []string) *model.PaneTree {
	if len(roles) == 1 {
		return model.Leaf(roles[0])
	}
	return model.Split(model.SplitHorizontal, leaves(roles)...)
}

// tiled arranges roles in a two-column grid, left column taking the
// extra pane when the count is odd.
func tiled(roles []string) *model.PaneTree {
	if len(roles) <= 2 {
		return row(roles)
	}
	mid := (len(roles) + 1) / 2
	return model.Split(model.SplitHorizontal,
		column(roles[:mid]),
		column(roles[mid:]),
	)
}
