package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Engine string
type PresetName string

const (
	EngineCodex  Engine = "codex"
	EngineClaude Engine = "claude"

	PresetRecommended PresetName = "recommended"
	PresetFullCodex   PresetName = "full-codex"
	PresetFullClaude  PresetName = "full-claude"
	PresetInverse     PresetName = "inverse"
)

// Preset assigns an engine to every team.
type Preset struct {
	Name  PresetName
	Teams map[Team]Engine
}

var presets = map[PresetName]Preset{
	PresetRecommended: {Name: PresetRecommended, Teams: map[Team]Engine{
		TeamDEV: EngineCodex, TeamINF: EngineCodex, TeamSEC: EngineClaude, TeamQA: EngineClaude,
	}},
	PresetFullCodex: {Name: PresetFullCodex, Teams: map[Team]Engine{
		TeamDEV: EngineCodex, TeamINF: EngineCodex, TeamSEC: EngineCodex, TeamQA: EngineCodex,
	}},
	PresetFullClaude: {Name: PresetFullClaude, Teams: map[Team]Engine{
		TeamDEV: EngineClaude, TeamINF: EngineClaude, TeamSEC: EngineClaude, TeamQA: EngineClaude,
	}},
	PresetInverse: {Name: PresetInverse, Teams: map[Team]Engine{
		TeamDEV: EngineClaude, TeamINF: EngineClaude, TeamSEC: EngineCodex, TeamQA: EngineCodex,
	}},
}

func LookupPreset(name string) (Preset, error) {
	preset, ok := presets[PresetName(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	return preset, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func (p Preset) EngineFor(team Team) Engine {
	if engine, ok := p.Teams[team]; ok {
		return engine
	}
	return EngineClaude
}
