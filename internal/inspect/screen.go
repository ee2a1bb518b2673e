// Package inspect draws a map workspace in the terminal and drives it from
// the keyboard.
package inspect

import "github.com/gdamore/tcell/v2"

// NewScreen creates and initializes a terminal screen.
func NewScreen() (tcell.Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := initScreen(s); err != nil {
		return nil, err
	}
	return s, nil
}

func initScreen(s tcell.Screen) error {
	if err := s.Init(); err != nil {
		return err
	}
	s.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	s.Clear()
	return nil
}

// palette maps State.Color codes to terminal colours.
var palette = []tcell.Color{
	tcell.ColorGray,      // empty
	tcell.ColorYellow,    // path
	tcell.ColorRed,       // spawn
	tcell.ColorGreen,     // goal
	tcell.ColorSlateGray, // border
}

func colorFor(code int) tcell.Color {
	if code < 0 || code >= len(palette) {
		return tcell.ColorWhite
	}
	return palette[code]
}
