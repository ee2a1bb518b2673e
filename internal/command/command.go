// Package command parses and executes map inspector commands shared by the
// terminal and websocket front-ends.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
	"github.com/lawnchairsociety/steamtunnels/internal/wave"
)

// ErrUnknownCommand is returned for names no command answers to.
var ErrUnknownCommand = errors.New("unknown command")

// ErrNoArchive is returned by archive when no database is configured.
var ErrNoArchive = errors.New("no layout archive configured")

type Command struct {
	Name string
	Args []string
}

// Result is the outcome of one command. Snapshot is set whenever the layout
// changed or was requested.
type Result struct {
	Command  string           `json:"command"`
	OK       bool             `json:"ok"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Point    *mapgen.Point    `json:"point,omitempty"`
	Path     []mapgen.Point   `json:"path,omitempty"`
	Wave     int              `json:"wave,omitempty"`
	Layout   int64            `json:"layout,omitempty"`
	Snapshot *mapgen.Snapshot `json:"snapshot,omitempty"`
	Quit     bool             `json:"-"`

	Err     error         `json:"-"`
	Changes *wave.Changes `json:"-"`
}

// RequireArgs checks if the command has at least the minimum number of arguments
// Returns an error with the usage message if not enough arguments are provided
func (c *Command) RequireArgs(min int, usage string) error {
	if len(c.Args) < min {
		return errors.New(usage)
	}
	return nil
}

// IntArg parses argument i, returning def when it is absent.
func (c *Command) IntArg(i, def int) (int, error) {
	if i >= len(c.Args) {
		return def, nil
	}
	n, err := strconv.Atoi(c.Args[i])
	if err != nil {
		return def, fmt.Errorf("argument %d of %s: %q is not a number", i+1, c.Name, c.Args[i])
	}
	return n, nil
}

// Label joins all arguments into a single label
func (c *Command) Label() string {
	return strings.Join(c.Args, " ")
}

func ParseCommand(input string) *Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Name: "", Args: []string{}}
	}

	return &Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// Execute runs the command against the workspace.
func (c *Command) Execute(ctx context.Context, w *Workspace) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	var r Result
	switch c.Name {
	case "help", "h", "?":
		r = Result{Message: helpText}
	case "new", "map", "m":
		r = c.executeNew(ctx, w)
	case "path", "p":
		r = c.executePath(ctx, w)
	case "expand", "e":
		r = c.executeExpand(ctx, w)
	case "spawn", "f":
		r = c.executeAddPoint(ctx, w, mapgen.KindSpawn)
	case "goal", "g":
		r = c.executeAddPoint(ctx, w, mapgen.KindGoal)
	case "route", "r":
		r = c.executeRoute(ctx, w)
	case "wave", "next", "w":
		r = c.executeWave(ctx, w)
	case "validate", "v":
		r = c.executeValidate(w)
	case "snapshot", "show", "s":
		snap := w.m.Snapshot()
		r = Result{Snapshot: &snap}
	case "archive", "save":
		r = c.executeArchive(w)
	case "quit", "exit", "q":
		r = Result{Message: "Goodbye.", Quit: true}
	default:
		r = Result{Err: fmt.Errorf("%w: %s. Type 'help' for available commands", ErrUnknownCommand, c.Name)}
	}

	r.Command = c.Name
	r.Wave = w.director.Wave()
	r.OK = r.Err == nil
	if r.Err != nil {
		r.Error = r.Err.Error()
		logger.Debug("Inspector command failed", "command", c.Name, "args", c.Args, "error", r.Err)
	}
	return r
}

func (w *Workspace) snapshot() *mapgen.Snapshot {
	s := w.m.Snapshot()
	return &s
}

func (c *Command) executeNew(ctx context.Context, w *Workspace) Result {
	cfg := w.cfg
	difficulty, err := c.IntArg(0, cfg.Difficulty)
	if err != nil {
		return Result{Err: err}
	}
	seed, err := c.IntArg(1, 0)
	if err != nil {
		return Result{Err: err}
	}
	cfg.Difficulty = difficulty
	cfg.Seed = int64(seed)

	if err := w.generate(ctx, cfg); err != nil {
		return Result{Err: err}
	}
	return Result{
		Message:  fmt.Sprintf("New %dx%d map at difficulty %d (seed %d).", w.m.Width, w.m.Height, w.m.Difficulty, w.m.Seed),
		Snapshot: w.snapshot(),
	}
}

func (c *Command) executePath(ctx context.Context, w *Workspace) Result {
	path, err := w.m.RecarvePrimaryPath(ctx)
	if err != nil {
		return Result{Err: err, Snapshot: w.snapshot()}
	}
	return Result{
		Message:  fmt.Sprintf("Carved a %d tile corridor.", len(path)),
		Path:     path,
		Snapshot: w.snapshot(),
	}
}

func (c *Command) executeExpand(ctx context.Context, w *Workspace) Result {
	addW, err := c.IntArg(0, w.schedule.ExpandWidth)
	if err != nil {
		return Result{Err: err}
	}
	addH, err := c.IntArg(1, addW)
	if err != nil {
		return Result{Err: err}
	}
	if err := w.m.Expand(ctx, addW, addH); err != nil {
		return Result{Err: err}
	}
	return Result{
		Message:  fmt.Sprintf("Expanded to %dx%d.", w.m.Width, w.m.Height),
		Snapshot: w.snapshot(),
	}
}

func (c *Command) executeAddPoint(ctx context.Context, w *Workspace, kind mapgen.Kind) Result {
	p, err := w.m.AddSpecialPoint(ctx, kind)
	if err != nil {
		return Result{Err: err}
	}
	return Result{
		Message:  fmt.Sprintf("Added %s at %s.", kind, p),
		Point:    &p,
		Snapshot: w.snapshot(),
	}
}

func (c *Command) executeRoute(ctx context.Context, w *Workspace) Result {
	spawns := w.m.Spawns()
	i, err := c.IntArg(0, 0)
	if err != nil {
		return Result{Err: err}
	}
	if i < 0 || i >= len(spawns) {
		return Result{Err: fmt.Errorf("spawn %d does not exist, the map has %d", i, len(spawns))}
	}
	before := w.m.Digest()
	path, err := w.m.Route(ctx, spawns[i])
	if err != nil {
		return Result{Err: err}
	}
	r := Result{
		Message: fmt.Sprintf("Route from %s reaches %s in %d tiles.", spawns[i], path[len(path)-1], len(path)),
		Path:    path,
	}
	if w.m.Digest() != before {
		r.Snapshot = w.snapshot()
	}
	return r
}

func (c *Command) executeWave(ctx context.Context, w *Workspace) Result {
	count, err := c.IntArg(0, 1)
	if err != nil {
		return Result{Err: err}
	}
	if count < 1 || count > w.maxWaves {
		return Result{Err: fmt.Errorf("wave count must be between 1 and %d, got %d", w.maxWaves, count)}
	}
	var r Result
	for i := 0; i < count; i++ {
		changes, err := w.director.Advance(ctx)
		if err != nil {
			return Result{Err: err}
		}
		for _, f := range changes.Failures {
			r.Warnings = append(r.Warnings, fmt.Sprintf("wave %d: %v", changes.Wave, f))
		}
		r.Changes = &changes
		r.Message = changes.String()
	}
	r.Snapshot = w.snapshot()
	return r
}

func (c *Command) executeValidate(w *Workspace) Result {
	var r Result
	for _, v := range w.m.Violations() {
		r.Warnings = append(r.Warnings, v.String())
	}
	if err := w.m.Validate(); err != nil {
		r.Err = err
		return r
	}
	r.Message = "Map is valid."
	return r
}

func (c *Command) executeArchive(w *Workspace) Result {
	if w.archive == nil {
		return Result{Err: ErrNoArchive}
	}
	layout, created, err := w.archive.SaveLayout(c.Label(), w.director.Wave(), w.m.Snapshot())
	if err != nil {
		return Result{Err: err}
	}
	msg := fmt.Sprintf("Archived layout %d.", layout.ID)
	if !created {
		msg = fmt.Sprintf("Layout already archived as %d.", layout.ID)
	} else {
		logger.Always("Layout archived", "id", layout.ID, "digest", layout.Digest, "label", layout.Label)
	}
	return Result{Message: msg, Layout: layout.ID}
}

const helpText = `Commands:
  new [difficulty] [seed]  (m)  generate a new map and primary corridor
  path                     (p)  carve the primary corridor again
  expand [width] [height]  (e)  grow the map
  spawn                    (f)  add a spawn point
  goal                     (g)  add a goal point
  route [spawn]            (r)  route an enemy from a spawn to a goal
  wave [count]             (w)  advance the wave schedule
  validate                 (v)  check the structural rules
  snapshot                 (s)  show the current map
  archive [label]               store the map in the layout archive
  quit                     (q)  leave the inspector`
