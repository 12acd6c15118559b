package cell_views

import (
	"html/template"

	"pathviz/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// TimingView shows the last elapsed time of each algorithm, the run status, and the
// current interaction mode.
type TimingView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewTimingView(
	done <-chan struct{},
	boards <-chan Board,
) (tv *TimingView) {
	tv = &TimingView{id: "timings"}
	tv.updates = channerics.Convert(done, boards, tv.onUpdate)
	return
}

func (tv *TimingView) Updates() <-chan []fastview.EleUpdate {
	return tv.updates
}

func timingId(algorithm string) string {
	return "timing-" + algorithm
}

func (tv *TimingView) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, timing := range board.Timings {
		ops = append(ops, fastview.SetText(timingId(timing.Algorithm), timing.Text))
	}
	return append(ops,
		fastview.SetText("status", board.Status),
		fastview.SetValue("mode", board.Mode),
	)
}

func (tv *TimingView) Parse(
	t *template.Template,
) (name string, err error) {
	name = tv.id
	_, err = t.Funcs(template.FuncMap{"timingId": timingId}).Parse(
		`{{ define "` + name + `" }}
		<div class="timings" id="` + tv.id + `">
			{{ range $timing := .Timings }}
			<p id="{{ timingId $timing.Algorithm }}">{{ $timing.Text }}</p>
			{{ end }}
			<p id="status">{{ .Status }}</p>
		</div>
		{{ end }}`)
	return
}
