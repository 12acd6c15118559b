package grid_world

import (
	"errors"
	"fmt"
)

// ErrUnknownPreset is returned by Preset for names it does not know.
var ErrUnknownPreset = errors.New("unknown layout preset")

// Preset layouts.
const (
	EmptyPreset      = "empty"
	DividedPreset    = "divided"
	SerpentinePreset = "serpentine"
)

// Preset builds one of the named layouts around the passed start and end.
func Preset(name string, start, end Coord) (Grid, error) {
	switch name {
	case "", EmptyPreset:
		return New(start, end)
	case DividedPreset:
		return Divided(start, end)
	case SerpentinePreset:
		return Serpentine(start, end)
	}
	return Grid{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Divided returns a grid with a solid wall row, no gaps, halfway between the
// start and end rows. Neither traversal can reach the end on this layout.
func Divided(start, end Coord) (g Grid, err error) {
	if g, err = New(start, end); err != nil {
		return
	}

	lo, hi := start.Row, end.Row
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi-lo < 2 {
		return g, fmt.Errorf("divided: start %v and end %v need a free row between them: %w", start, end, ErrBadTrack)
	}

	wallRow := (lo + hi) / 2
	for col := 0; col < Cols; col++ {
		g.SetWall(Coord{Row: wallRow, Col: col})
	}
	return
}

// Serpentine returns a grid whose wall rows (every fourth row) each leave a single gap,
// alternating between the right and left edges, so the open space is one winding corridor.
// Start or end cells landing on a wall row are left open.
func Serpentine(start, end Coord) (g Grid, err error) {
	if g, err = New(start, end); err != nil {
		return
	}

	for row := 4; row < Rows; row += 4 {
		gap := Cols - 1
		if (row/4)%2 == 0 {
			gap = 0
		}
		for col := 0; col < Cols; col++ {
			if col != gap {
				g.SetWall(Coord{Row: row, Col: col})
			}
		}
	}
	return
}

// FromTrack converts a track layout into a grid. The track must be Rows strings of Cols
// runes each, using the WALL, TRACK, START and FINISH runes, with exactly one START
// and one FINISH. Row 0 of the track is row 0 of the grid.
func FromTrack(track []string) (g Grid, err error) {
	if len(track) != Rows {
		return g, fmt.Errorf("track has %d rows, want %d: %w", len(track), Rows, ErrBadTrack)
	}

	var starts, ends, walls []Coord
	for row, line := range track {
		if len(line) != Cols {
			return g, fmt.Errorf("track row %d has %d cells, want %d: %w", row, len(line), Cols, ErrBadTrack)
		}
		for col, cellType := range line {
			c := Coord{Row: row, Col: col}
			switch cellType {
			case WALL:
				walls = append(walls, c)
			case START:
				starts = append(starts, c)
			case FINISH:
				ends = append(ends, c)
			case TRACK:
			default:
				return g, fmt.Errorf("track cell %v has unknown type %q: %w", c, cellType, ErrBadTrack)
			}
		}
	}

	if len(starts) != 1 || len(ends) != 1 {
		return g, fmt.Errorf("track needs exactly one start and one finish, has %d and %d: %w",
			len(starts), len(ends), ErrBadTrack)
	}

	if g, err = New(starts[0], ends[0]); err != nil {
		return
	}
	for _, wall := range walls {
		g.SetWall(wall)
	}
	return
}

// Track converts the grid back into its track layout; visited flags are not represented.
func Track(g Grid) []string {
	track := make([]string, Rows)
	for row := range g.cells {
		line := make([]byte, Cols)
		for col, cell := range g.cells[row] {
			switch {
			case cell.IsStart:
				line[col] = START
			case cell.IsEnd:
				line[col] = FINISH
			case cell.IsWall:
				line[col] = WALL
			default:
				line[col] = TRACK
			}
		}
		track[row] = string(line)
	}
	return track
}
