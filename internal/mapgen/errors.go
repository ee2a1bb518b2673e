package mapgen

import "errors"

var (
	ErrInvalidState      = errors.New("mapgen: invalid tile state")
	ErrInvalidDifficulty = errors.New("mapgen: difficulty must be between 1 and 5")
	ErrInvalidSize       = errors.New("mapgen: invalid grid size")
	ErrOutOfBounds       = errors.New("mapgen: point outside the grid")
	ErrOccupied          = errors.New("mapgen: tile is not empty")
	ErrNoSpecialPoints   = errors.New("mapgen: map has no spawn or goal")
	ErrUngeneratable     = errors.New("mapgen: could not carve a corridor")
	ErrPointNotPlaced    = errors.New("mapgen: could not place special point")
	ErrDisconnected      = errors.New("mapgen: corridor network is not connected")
)
