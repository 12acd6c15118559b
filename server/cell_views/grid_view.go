package cell_views

import (
	"fmt"
	"html/template"

	"pathviz/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// CellDim is the height and width of a cell in pixels.
const CellDim = 20

// GridView draws the grid as an svg of rects, one per cell, filled per cell state.
// Each rect carries its row and column so the page can report clicks and drags.
type GridView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewGridView(
	done <-chan struct{},
	boards <-chan Board,
) (gv *GridView) {
	gv = &GridView{id: "gridview"}
	gv.updates = channerics.Convert(done, boards, gv.onUpdate)
	return
}

func (gv *GridView) Updates() <-chan []fastview.EleUpdate {
	return gv.updates
}

// onUpdate returns the fill of every cell. Sending the full grid keeps each batch
// sufficient on its own to bring the page up to date.
func (gv *GridView) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, row := range board.Cells {
		for _, cell := range row {
			ops = append(ops, fastview.SetAttr(cell.Id(), "fill", cell.Fill))
		}
	}
	return
}

func (gv *GridView) Parse(
	t *template.Template,
) (name string, err error) {
	name = gv.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div class="grid">
			{{ $cell_dim := ` + fmt.Sprintf("%d", CellDim) + ` }}
			{{ $rows := len .Cells }}
			{{ $cols := len (index .Cells 0) }}
			<svg id="` + gv.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ add (mult $cell_dim $cols) 1 }}px"
				height="{{ add (mult $cell_dim $rows) 1 }}px"
				style="shape-rendering: crispEdges; user-select: none;">
				{{ range $row := .Cells }}
					{{ range $cell := $row }}
					<rect id="{{ $cell.Id }}"
						data-row="{{ $cell.Row }}"
						data-col="{{ $cell.Col }}"
						x="{{ mult $cell.Col $cell_dim }}"
						y="{{ mult $cell.Row $cell_dim }}"
						width="{{ $cell_dim }}"
						height="{{ $cell_dim }}"
						fill="{{ $cell.Fill }}"
						stroke="lightgray"
						stroke-width="1"/>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}
