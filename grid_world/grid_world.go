package grid_world

import (
	"errors"
	"fmt"
	"io"
)

// The grid is fixed size. Nothing downstream is written to expect other dimensions,
// the views and the visited matrices of the traversals are sized off these.
const (
	Rows = 20
	Cols = 40
)

const (
	// Track cell types, as used in the string layouts read by FromTrack.
	WALL   = 'W'
	TRACK  = 'o'
	START  = '-'
	FINISH = '+'
)

// Algorithm names a traversal, and thereby a visited-flag namespace on the cells.
type Algorithm string

const (
	BFS Algorithm = "bfs"
	DFS Algorithm = "dfs"
)

// Algorithms lists the traversals in display order.
var Algorithms = []Algorithm{BFS, DFS}

// ErrUnknownAlgorithm is returned when parsing an algorithm name fails.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// ParseAlgorithm converts a name like "bfs" to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch alg := Algorithm(name); alg {
	case BFS, DFS:
		return alg, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Coord is a row/column position. Row 0 is the top of the grid.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add returns the coordinate offset by the passed delta.
func (c Coord) Add(delta Coord) Coord {
	return Coord{Row: c.Row + delta.Row, Col: c.Col + delta.Col}
}

var (
	DefaultStart = Coord{Row: 2, Col: 5}
	DefaultEnd   = Coord{Row: 15, Col: 30}
)

// Directions is the fixed neighbor order: right, down, left, up. BFS correctness
// does not depend on it, but the exact visit sequence of both traversals does.
var Directions = [4]Coord{
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: -1, Col: 0},
}

// InBounds reports whether the coordinate lies on the grid.
func InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < Rows && c.Col >= 0 && c.Col < Cols
}

// Neighbors returns the in-bounds neighbors of c in Directions order.
func Neighbors(c Coord) (neighbors []Coord) {
	neighbors = make([]Coord, 0, len(Directions))
	for _, delta := range Directions {
		if n := c.Add(delta); InBounds(n) {
			neighbors = append(neighbors, n)
		}
	}
	return
}

// Cell is a single grid position and its display flags. The two visited flags
// belong to different traversals and never affect one another.
type Cell struct {
	Row, Col     int
	IsStart      bool
	IsEnd        bool
	IsWall       bool
	IsVisitedBFS bool
	IsVisitedDFS bool
}

// Coord returns the cell's position.
func (cell Cell) Coord() Coord {
	return Coord{Row: cell.Row, Col: cell.Col}
}

// Grid is a value type: assigning or passing a Grid copies every cell, which is what
// makes a published snapshot immutable to whoever receives it. Mutating methods
// take a pointer and only ever affect the caller's copy.
type Grid struct {
	cells      [Rows][Cols]Cell
	start, end Coord
}

var (
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	ErrSameCell    = errors.New("start and end must be different cells")
	ErrBadTrack    = errors.New("malformed track")
)

// New builds a fresh grid with the passed start and end and no walls or visited cells.
// Grids are replaced rather than patched whenever start or end move, so this is the
// only way either position is set.
func New(start, end Coord) (g Grid, err error) {
	if !InBounds(start) {
		return g, fmt.Errorf("start %v: %w", start, ErrOutOfBounds)
	}
	if !InBounds(end) {
		return g, fmt.Errorf("end %v: %w", end, ErrOutOfBounds)
	}
	if start == end {
		return g, ErrSameCell
	}

	g.start, g.end = start, end
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			g.cells[row][col] = Cell{
				Row:     row,
				Col:     col,
				IsStart: row == start.Row && col == start.Col,
				IsEnd:   row == end.Row && col == end.Col,
			}
		}
	}
	return g, nil
}

// Default returns an empty grid with the default start and end.
func Default() Grid {
	g, _ := New(DefaultStart, DefaultEnd)
	return g
}

// Read accessors take the grid by value, so they work on any snapshot, addressable or not.

func (g Grid) Start() Coord { return g.start }
func (g Grid) End() Coord   { return g.end }

// At returns the cell at c. The caller must ensure c is in bounds.
func (g Grid) At(c Coord) Cell {
	return g.cells[c.Row][c.Col]
}

// IsWall reports whether c is an in-bounds wall.
func (g Grid) IsWall(c Coord) bool {
	return InBounds(c) && g.cells[c.Row][c.Col].IsWall
}

// SetWall marks c as a wall. Start, end and out of bounds cells are left alone,
// in which case false is returned.
func (g *Grid) SetWall(c Coord) bool {
	if !InBounds(c) || c == g.start || c == g.end {
		return false
	}
	g.cells[c.Row][c.Col].IsWall = true
	return true
}

// MarkVisited sets the passed algorithm's visited flag on c. Start and end never
// carry a visited flag; for those, and for out of bounds cells, this is a no-op.
func (g *Grid) MarkVisited(c Coord, alg Algorithm) {
	if !InBounds(c) || c == g.start || c == g.end {
		return
	}
	cell := &g.cells[c.Row][c.Col]
	switch alg {
	case BFS:
		cell.IsVisitedBFS = true
	case DFS:
		cell.IsVisitedDFS = true
	}
}

// IsVisited reports the passed algorithm's visited flag on c.
func (g Grid) IsVisited(c Coord, alg Algorithm) bool {
	cell := g.At(c)
	if alg == BFS {
		return cell.IsVisitedBFS
	}
	return cell.IsVisitedDFS
}

// ResetVisited clears the visited flags of the passed algorithms, or of both when none are passed.
func (g *Grid) ResetVisited(algs ...Algorithm) {
	if len(algs) == 0 {
		algs = Algorithms
	}
	g.Visit(func(cell *Cell) {
		for _, alg := range algs {
			switch alg {
			case BFS:
				cell.IsVisitedBFS = false
			case DFS:
				cell.IsVisitedDFS = false
			}
		}
	})
}

// Visit visits every cell, row by row, using the passed function.
func (g *Grid) Visit(fn func(cell *Cell)) {
	for row := range g.cells {
		for col := range g.cells[row] {
			fn(&g.cells[row][col])
		}
	}
}

// Cells returns a copy of the cells as a [row][col] slice, for templates and json.
func (g Grid) Cells() [][]Cell {
	cells := make([][]Cell, Rows)
	for row := range g.cells {
		cells[row] = append([]Cell(nil), g.cells[row][:]...)
	}
	return cells
}

// VisitedCount returns the number of cells carrying the algorithm's visited flag.
func (g Grid) VisitedCount(alg Algorithm) (n int) {
	g.Visit(func(cell *Cell) {
		if (alg == BFS && cell.IsVisitedBFS) || (alg == DFS && cell.IsVisitedDFS) {
			n++
		}
	})
	return
}

// Show the grid, for visual reference in a console:
//
//	S start, E end, # wall, b bfs-visited, d dfs-visited, x both, . open
func ShowGrid(w io.Writer, g Grid) {
	for row := range g.cells {
		line := make([]byte, 0, Cols)
		for _, cell := range g.cells[row] {
			line = append(line, cellRune(cell))
		}
		fmt.Fprintln(w, string(line))
	}
}

func cellRune(cell Cell) byte {
	switch {
	case cell.IsStart:
		return 'S'
	case cell.IsEnd:
		return 'E'
	case cell.IsWall:
		return '#'
	case cell.IsVisitedBFS && cell.IsVisitedDFS:
		return 'x'
	case cell.IsVisitedBFS:
		return 'b'
	case cell.IsVisitedDFS:
		return 'd'
	}
	return '.'
}
