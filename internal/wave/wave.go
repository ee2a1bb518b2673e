// Package wave drives map changes between tower defense waves.
package wave

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
	"github.com/lawnchairsociety/steamtunnels/internal/telemetry"
)

// Schedule sets how often the map changes. An interval of 0 disables the
// change. Wave 1 never changes the map.
type Schedule struct {
	ExpandEvery  int
	SpawnEvery   int
	GoalEvery    int
	ExpandWidth  int
	ExpandHeight int
}

// DefaultSchedule expands by 6x6 every 5th wave, adds a spawn every 4th and a
// goal every 6th.
func DefaultSchedule() Schedule {
	return Schedule{
		ExpandEvery:  5,
		SpawnEvery:   4,
		GoalEvery:    6,
		ExpandWidth:  6,
		ExpandHeight: 6,
	}
}

func due(wave, every int) bool {
	return wave > 1 && every > 0 && wave%every == 0
}

// ShouldExpand reports whether the map grows before the given wave.
func (s Schedule) ShouldExpand(wave int) bool { return due(wave, s.ExpandEvery) }

// ShouldAddSpawn reports whether a spawn is added before the given wave.
func (s Schedule) ShouldAddSpawn(wave int) bool { return due(wave, s.SpawnEvery) }

// ShouldAddGoal reports whether a goal is added before the given wave.
func (s Schedule) ShouldAddGoal(wave int) bool { return due(wave, s.GoalEvery) }

// Pace describes how a wave is paced once the map is ready.
type Pace struct {
	Enemies       int
	SpawnInterval time.Duration
	Speed         float64 // tiles per second scaled by 30
}

// PaceFor returns the pacing curve value for a wave.
func PaceFor(wave int) Pace {
	interval := math.Max(0.2, 1.5-float64(wave)*0.05)
	return Pace{
		Enemies:       int(10 + float64(wave)*2.8),
		SpawnInterval: time.Duration(interval * float64(time.Second)),
		Speed:         float64(30 + wave*2),
	}
}

// Changes reports what Advance did to the map.
type Changes struct {
	Wave     int
	Expanded bool
	Spawn    *mapgen.Point
	Goal     *mapgen.Point
	Pace     Pace
	Digest   string  // layout digest after the changes
	Failures []error // non-fatal failures, the map stays usable
}

// Changed reports whether the layout differs from the previous wave.
func (c Changes) Changed() bool {
	return c.Expanded || c.Spawn != nil || c.Goal != nil
}

func (c Changes) String() string {
	s := fmt.Sprintf("wave %d:", c.Wave)
	if c.Expanded {
		s += " expanded"
	}
	if c.Spawn != nil {
		s += " spawn@" + c.Spawn.String()
	}
	if c.Goal != nil {
		s += " goal@" + c.Goal.String()
	}
	if !c.Changed() {
		s += " no changes"
	}
	if len(c.Failures) > 0 {
		s += fmt.Sprintf(" (%d failed)", len(c.Failures))
	}
	return s
}

// Director advances waves on one map. It is not safe for concurrent use.
type Director struct {
	m        *mapgen.Map
	schedule Schedule
	wave     int
	tracer   trace.Tracer
}

// NewDirector returns a director positioned before wave 1.
func NewDirector(m *mapgen.Map, s Schedule) *Director {
	return &Director{
		m:        m,
		schedule: s,
		tracer:   telemetry.Tracer("wave"),
	}
}

// Wave returns the last wave started.
func (d *Director) Wave() int {
	return d.wave
}

// Map returns the map being driven.
func (d *Director) Map() *mapgen.Map {
	return d.m
}

// Advance starts the next wave, expanding the map and adding spawns and goals
// as scheduled. Generation failures are collected in the report and logged.
// Only a cancelled context is returned as an error.
func (d *Director) Advance(ctx context.Context) (Changes, error) {
	d.wave++
	ctx, span := d.tracer.Start(ctx, "wave.advance")
	defer span.End()
	span.SetAttributes(attribute.Int("wave.number", d.wave))

	c := Changes{Wave: d.wave, Pace: PaceFor(d.wave)}

	if d.schedule.ShouldExpand(d.wave) {
		if err := d.m.Expand(ctx, d.schedule.ExpandWidth, d.schedule.ExpandHeight); err != nil {
			if ctx.Err() != nil {
				return c, err
			}
			c.Failures = append(c.Failures, fmt.Errorf("expand: %w", err))
		} else {
			c.Expanded = true
		}
	}

	for _, step := range []struct {
		due  bool
		kind mapgen.Kind
		dst  **mapgen.Point
	}{
		{d.schedule.ShouldAddSpawn(d.wave), mapgen.KindSpawn, &c.Spawn},
		{d.schedule.ShouldAddGoal(d.wave), mapgen.KindGoal, &c.Goal},
	} {
		if !step.due {
			continue
		}
		p, err := d.m.AddSpecialPoint(ctx, step.kind)
		if err != nil {
			if ctx.Err() != nil {
				return c, err
			}
			c.Failures = append(c.Failures, fmt.Errorf("add %s: %w", step.kind, err))
			continue
		}
		*step.dst = &p
	}

	c.Digest = d.m.Digest()
	span.SetAttributes(
		attribute.Bool("wave.expanded", c.Expanded),
		attribute.Bool("wave.spawn_added", c.Spawn != nil),
		attribute.Bool("wave.goal_added", c.Goal != nil),
		attribute.Int("map.width", d.m.Width),
		attribute.Int("map.height", d.m.Height),
	)
	for _, err := range c.Failures {
		span.RecordError(err)
		logger.Warning("Wave map change failed", "wave", d.wave, "error", err)
	}
	if len(c.Failures) > 0 {
		span.SetStatus(codes.Error, "map change failed")
	}
	if c.Changed() {
		logger.Info("Map changed for wave", "wave", d.wave, "width", d.m.Width, "height", d.m.Height,
			"spawns", len(d.m.Spawns()), "goals", len(d.m.Goals()))
	}
	return c, nil
}

// Run advances through waves until the given wave has started.
func (d *Director) Run(ctx context.Context, through int) ([]Changes, error) {
	var all []Changes
	for d.wave < through {
		c, err := d.Advance(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, c)
	}
	return all, nil
}
