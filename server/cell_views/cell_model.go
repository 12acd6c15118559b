// cell_views contains views derived from the Board view-model.
package cell_views

import (
	"fmt"

	gw "pathviz/grid_world"
	"pathviz/session"
	"pathviz/traversal"
)

// Cell is a grid cell reduced to what the views draw. As a rule of thumb, Cell fields
// should be immediately usable as view parameters.
type Cell struct {
	Row, Col int
	Fill     string
}

// Id is the cell's svg element id.
func (cell Cell) Id() string {
	return fmt.Sprintf("%d-%d-cell", cell.Row, cell.Col)
}

// Timing is one line of the timing panel.
type Timing struct {
	Algorithm string
	Text      string
}

// Board is the view-model of a session frame.
type Board struct {
	Cells   [][]Cell
	Mode    string
	Running string
	Timings []Timing
	Status  string
}

// Fills per cell state, in order of precedence.
const (
	StartFill   = "limegreen"
	EndFill     = "crimson"
	WallFill    = "dimgray"
	BothFill    = "mediumpurple"
	BFSFill     = "lightskyblue"
	DFSFill     = "plum"
	DefaultFill = "white"
)

// Convert transforms a session frame into a Board.
func Convert(frame session.Frame) Board {
	cells := make([][]Cell, gw.Rows)
	for row := range cells {
		cells[row] = make([]Cell, gw.Cols)
	}
	frame.Grid.Visit(func(cell *gw.Cell) {
		cells[cell.Row][cell.Col] = Cell{
			Row:  cell.Row,
			Col:  cell.Col,
			Fill: getFill(cell),
		}
	})

	timings := make([]Timing, 0, len(frame.Timings))
	for _, timing := range frame.Timings {
		timings = append(timings, Timing{
			Algorithm: string(timing.Algorithm),
			Text:      timingText(timing),
		})
	}

	return Board{
		Cells:   cells,
		Mode:    string(frame.Mode),
		Running: string(frame.Running),
		Timings: timings,
		Status:  status(frame),
	}
}

func getFill(cell *gw.Cell) string {
	switch {
	case cell.IsStart:
		return StartFill
	case cell.IsEnd:
		return EndFill
	case cell.IsWall:
		return WallFill
	case cell.IsVisitedBFS && cell.IsVisitedDFS:
		return BothFill
	case cell.IsVisitedBFS:
		return BFSFill
	case cell.IsVisitedDFS:
		return DFSFill
	}
	return DefaultFill
}

// timingText is empty until the algorithm has run.
func timingText(timing session.Timing) string {
	if timing.LastMillis < 0 {
		return ""
	}
	return fmt.Sprintf("%s Time: %.2f ms", labels[timing.Algorithm], timing.LastMillis)
}

var labels = map[gw.Algorithm]string{
	gw.BFS: "BFS",
	gw.DFS: "DFS",
}

func status(frame session.Frame) string {
	if frame.Running != "" {
		return labels[frame.Running] + " running..."
	}
	last := frame.Last
	if last == nil {
		return "Idle"
	}
	switch last.Outcome {
	case traversal.Reached:
		return fmt.Sprintf("%s reached the end in %d moves, %d cells visited",
			labels[last.Algorithm], last.Distance, last.Visited)
	case traversal.Exhausted:
		return fmt.Sprintf("%s found no path, %d cells visited",
			labels[last.Algorithm], last.Visited)
	}
	return fmt.Sprintf("%s stopped after %d cells", labels[last.Algorithm], last.Visited)
}
