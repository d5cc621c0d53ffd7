// Package sport holds the per-sport configuration of the feature engine:
// tracked stats, window sizes, feature rules and incremental run windows.
package sport

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"sports-feature-lab/internal/compose"
	"sports-feature-lab/internal/domain"
	"sports-feature-lab/internal/rolling"
	"sports-feature-lab/internal/teamgame"
)

//go:embed profiles/*.yaml
var defaultProfiles embed.FS

// TeamSource is the source name of the team-level snapshot index.
const TeamSource = "team"

// StatDef declares one rolling stat of a source.
type StatDef struct {
	Source string `yaml:"source"`
	Name   string `yaml:"name,omitempty"`
	Kind   string `yaml:"kind,omitempty"` // mean (default) | count
}

// Source declares a snapshot index built from observations of one group.
type Source struct {
	Name  string    `yaml:"name"`
	Group string    `yaml:"group"`
	Stats []StatDef `yaml:"stats"`
}

// Ratio declares a percentage recomputed from team totals.
type Ratio struct {
	Name      string `yaml:"name"`
	Made      string `yaml:"made"`
	Attempted string `yaml:"attempted"`
}

// TeamTotals declares how player rows are summed into team rows.
type TeamTotals struct {
	Counting []string `yaml:"counting"`
	Ratios   []Ratio  `yaml:"ratios"`
}

// Feature declares one composition rule.
type Feature struct {
	Kind    string    `yaml:"kind"`
	Source  string    `yaml:"source"`
	Prefix  string    `yaml:"prefix,omitempty"`
	Stats   []string  `yaml:"stats"`
	Windows []int     `yaml:"windows,omitempty"` // defaults to the profile windows
	Weights []float64 `yaml:"weights,omitempty"`
}

// Incremental declares the bounded windows of an incremental run.
type Incremental struct {
	TargetBack  time.Duration `yaml:"target_back"`
	TargetAhead time.Duration `yaml:"target_ahead"`
	History     time.Duration `yaml:"history"`
}

// Profile is the complete configuration of one sport.
type Profile struct {
	Sport            domain.Sport `yaml:"sport"`
	Precision        int          `yaml:"precision"`
	FirstSeason      int          `yaml:"first_season"`
	SeasonStartMonth int          `yaml:"season_start_month"`
	Windows          []int        `yaml:"windows"`
	WriteBatchSize   int          `yaml:"write_batch_size"`
	Incremental      Incremental  `yaml:"incremental"`
	Sources          []Source     `yaml:"sources"`
	TeamTotals       *TeamTotals  `yaml:"team_totals,omitempty"`
	Features         []Feature    `yaml:"features"`
}

// ErrUnknownSport is returned when no profile exists for a sport.
var ErrUnknownSport = errors.New("unknown sport")

// Load returns the profile of a sport. A file <dir>/<sport>.yaml overrides
// the embedded default when dir is set and the file exists.
func Load(s domain.Sport, dir string) (*Profile, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSport, s)
	}
	name := string(s) + ".yaml"

	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		switch {
		case err == nil:
			return Parse(data)
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read profile %s: %w", name, err)
		}
	}

	data, err := defaultProfiles.ReadFile("profiles/" + name)
	if err != nil {
		return nil, fmt.Errorf("read embedded profile %s: %w", name, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile. Unknown fields are rejected.
func Parse(data []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s profile: %w", p.Sport, err)
	}
	return &p, nil
}

// Validate checks the profile and the rolling and feature configs it implies.
func (p *Profile) Validate() error {
	if !p.Sport.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSport, p.Sport)
	}
	if p.SeasonStartMonth < 1 || p.SeasonStartMonth > 12 {
		return fmt.Errorf("season_start_month must be 1-12, got %d", p.SeasonStartMonth)
	}
	if p.Precision <= 0 {
		return fmt.Errorf("precision must be at least 1 decimal place, got %d", p.Precision)
	}
	if p.FirstSeason <= 0 {
		return fmt.Errorf("first_season must be set")
	}
	if p.Incremental.History <= p.Incremental.TargetBack {
		return fmt.Errorf("incremental history (%s) must exceed target_back (%s)", p.Incremental.History, p.Incremental.TargetBack)
	}
	if p.Incremental.TargetBack < 0 || p.Incremental.TargetAhead < 0 {
		return fmt.Errorf("incremental windows must not be negative")
	}

	names := make(map[string]bool, len(p.Sources))
	for _, src := range p.Sources {
		if names[src.Name] {
			return fmt.Errorf("duplicate source %q", src.Name)
		}
		names[src.Name] = true
		cfg, err := p.RollingConfig(src.Name)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}
	}
	if !names[TeamSource] {
		return fmt.Errorf("profile needs a %q source", TeamSource)
	}

	schema := p.Schema()
	if err := schema.Validate(); err != nil {
		return err
	}
	windows := make(map[int]bool, len(p.Windows))
	for _, w := range p.Windows {
		windows[w] = true
	}
	for _, f := range p.Features {
		if !names[f.Source] {
			return fmt.Errorf("feature references unknown source %q", f.Source)
		}
		src, _ := p.Source(f.Source)
		outputs := make(map[string]bool, len(src.Stats))
		for _, def := range src.Stats {
			outputs[rolling.Stat{Source: def.Source, Name: def.Name}.OutputName()] = true
		}
		for _, stat := range f.Stats {
			if !outputs[stat] {
				return fmt.Errorf("feature stat %q is not computed by source %q", stat, f.Source)
			}
		}
		for _, w := range f.Windows {
			if !windows[w] {
				return fmt.Errorf("feature window %d of source %q is not a profile window", w, f.Source)
			}
		}
	}
	return nil
}

// Source returns a source by name.
func (p *Profile) Source(name string) (Source, bool) {
	for _, s := range p.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// RollingConfig returns the aggregator config of a source.
func (p *Profile) RollingConfig(name string) (rolling.Config, error) {
	src, ok := p.Source(name)
	if !ok {
		return rolling.Config{}, fmt.Errorf("unknown source %q", name)
	}
	cfg := rolling.Config{Windows: p.Windows}
	for _, def := range src.Stats {
		stat := rolling.Stat{Source: def.Source, Name: def.Name}
		switch def.Kind {
		case "", "mean":
			stat.Kind = rolling.KindMean
		case "count":
			stat.Kind = rolling.KindCount
		default:
			return rolling.Config{}, fmt.Errorf("source %q: unknown stat kind %q", name, def.Kind)
		}
		cfg.Stats = append(cfg.Stats, stat)
	}
	return cfg, nil
}

// Schema returns the feature schema.
func (p *Profile) Schema() compose.Schema {
	schema := compose.Schema{Precision: p.Precision}
	for _, f := range p.Features {
		windows := f.Windows
		if len(windows) == 0 {
			windows = p.Windows
		}
		schema.Rules = append(schema.Rules, compose.Rule{
			Kind:    compose.RuleKind(f.Kind),
			Source:  f.Source,
			Prefix:  f.Prefix,
			Stats:   f.Stats,
			Windows: windows,
			Weights: f.Weights,
		})
	}
	return schema
}

// Totals returns the team-game summation config, empty when not declared.
func (p *Profile) Totals() teamgame.Totals {
	if p.TeamTotals == nil {
		return teamgame.Totals{}
	}
	t := teamgame.Totals{Counting: p.TeamTotals.Counting}
	for _, r := range p.TeamTotals.Ratios {
		t.Ratios = append(t.Ratios, teamgame.Ratio{Name: r.Name, Made: r.Made, Attempted: r.Attempted})
	}
	return t
}

// SeasonOf returns the season id a date belongs to.
// Seasons starting mid-year are named after their start year.
func (p *Profile) SeasonOf(t time.Time) int {
	t = t.UTC()
	if int(t.Month()) < p.SeasonStartMonth {
		return t.Year() - 1
	}
	return t.Year()
}

// Seasons returns every season id from the first season through the current one.
func (p *Profile) Seasons(now time.Time) []int {
	current := p.SeasonOf(now)
	var out []int
	for s := p.FirstSeason; s <= current; s++ {
		out = append(out, s)
	}
	return out
}

// TargetRange returns the inclusive contest dates an incremental run recomputes.
func (p *Profile) TargetRange(now time.Time) (from, to time.Time) {
	return day(now.Add(-p.Incremental.TargetBack)), day(now.Add(p.Incremental.TargetAhead))
}

// HistoryFrom returns the earliest contest date an incremental run reads as aggregation input.
func (p *Profile) HistoryFrom(now time.Time) time.Time {
	return day(now.Add(-p.Incremental.History))
}

// day truncates t to its UTC calendar date, the form contest dates are stored in.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
