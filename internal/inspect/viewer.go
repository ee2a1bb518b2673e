package inspect

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lawnchairsociety/steamtunnels/internal/command"
	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
	"github.com/lawnchairsociety/steamtunnels/internal/telemetry"
)

// GlyphRoute marks the tiles of the last computed route.
const GlyphRoute = '*'

// keyCommands binds keys to inspector commands.
var keyCommands = map[rune]string{
	'm': "new",
	'p': "path",
	'e': "expand",
	'f': "spawn",
	'g': "goal",
	'r': "route",
	'w': "wave",
	'v': "validate",
	'q': "quit",
}

// Viewer renders a workspace and runs commands for key presses.
type Viewer struct {
	screen  tcell.Screen
	ws      *command.Workspace
	route   []mapgen.Point
	status  string
	failed  bool
	running bool
}

// NewViewer creates a viewer over an initialized screen.
func NewViewer(screen tcell.Screen, ws *command.Workspace) *Viewer {
	return &Viewer{
		screen:  screen,
		ws:      ws,
		status:  "m:new p:path e:expand f:spawn g:goal r:route w:wave v:validate q:quit",
		running: true,
	}
}

// Run draws and handles input until the user quits or ctx is done.
func (v *Viewer) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	quit := make(chan struct{})
	go v.screen.ChannelEvents(events, quit)
	defer close(quit)

	for v.running {
		v.Draw()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			v.HandleEvent(ctx, ev)
		}
	}
	return nil
}

// Running reports whether the viewer still accepts input.
func (v *Viewer) Running() bool {
	return v.running
}

// Status returns the text of the status line.
func (v *Viewer) Status() string {
	return v.status
}

// HandleEvent processes a single terminal event.
func (v *Viewer) HandleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		v.handleKeyEvent(ctx, ev)
	case *tcell.EventResize:
		v.screen.Sync()
	}
}

func (v *Viewer) handleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		v.running = false
	case tcell.KeyRune:
		r := ev.Rune()
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if line, ok := keyCommands[r]; ok {
			v.Exec(ctx, line)
		}
	}
}

// Exec runs one command line against the workspace and records its outcome
// in the status line.
func (v *Viewer) Exec(ctx context.Context, line string) command.Result {
	ctx, span := telemetry.Tracer("inspect").Start(ctx, "inspect.exec")
	defer span.End()

	cmd := command.ParseCommand(line)
	result := cmd.Execute(ctx, v.ws)
	span.SetAttributes(
		attribute.String("command", cmd.Name),
		attribute.Bool("ok", result.OK),
	)

	v.failed = !result.OK
	switch {
	case !result.OK:
		v.status = result.Error
	case len(result.Warnings) > 0:
		v.status = fmt.Sprintf("%s %s (%d warnings)", result.Message, result.Warnings[0], len(result.Warnings))
	default:
		v.status = result.Message
	}

	// A route only stays valid until the map changes.
	if cmd.Name == "route" {
		v.route = result.Path
	} else if result.Snapshot != nil {
		v.route = nil
	}

	if result.Quit {
		v.running = false
	}
	logger.Debug("Viewer command", "command", cmd.Name, "ok", result.OK)
	return result
}

// Draw renders the map, the route overlay and the status line.
func (v *Viewer) Draw() {
	v.screen.Clear()

	m := v.ws.Map()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			state := m.Tile(mapgen.Point{X: x, Y: y}).State()
			style := tcell.StyleDefault.Foreground(colorFor(state.Color()))
			if state == mapgen.StateSpawn || state == mapgen.StateGoal {
				style = style.Bold(true)
			}
			v.screen.SetContent(x, y, state.Glyph(), nil, style)
		}
	}

	routeStyle := tcell.StyleDefault.Foreground(tcell.ColorAqua)
	for _, p := range v.route {
		if m.In(p) && m.Tile(p).State() == mapgen.StatePath {
			v.screen.SetContent(p.X, p.Y, GlyphRoute, nil, routeStyle)
		}
	}

	info := fmt.Sprintf("wave %d  %dx%d  difficulty %d  spawns %d  goals %d",
		v.ws.Wave(), m.Width, m.Height, m.Difficulty, len(m.Spawns()), len(m.Goals()))
	v.drawText(0, m.Height, info, tcell.StyleDefault.Foreground(tcell.ColorWhite))

	statusStyle := tcell.StyleDefault.Foreground(tcell.ColorSilver)
	if v.failed {
		statusStyle = tcell.StyleDefault.Foreground(tcell.ColorRed)
	}
	v.drawText(0, m.Height+1, v.status, statusStyle)

	v.screen.Show()
}

func (v *Viewer) drawText(x, y int, text string, style tcell.Style) {
	for i, ch := range []rune(text) {
		v.screen.SetContent(x+i, y, ch, nil, style)
	}
}
