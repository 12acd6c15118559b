package root_view

import (
	"context"
	"html/template"

	"pathviz/server/cell_views"
	"pathviz/server/fastview"
	"pathviz/session"
)

// RootView is the main page's index.html: the container for all the view components,
// the page controls, and the wiring of their channels.
type RootView struct {
	page *fastview.Page
}

// NewRootView builds the page's views over a subscription to the passed source, released
// once ctx is done. Every client gets its own root view; a nil source builds a view that
// is only parsed and rendered.
func NewRootView(
	ctx context.Context,
	source fastview.Source[session.Frame],
) (*RootView, error) {
	page, err := fastview.NewViewBuilder[session.Frame, cell_views.Board](cell_views.Convert).
		Subscribe(source).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewGridView(done, boards)
		}).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewTimingView(done, boards)
		}).
		Build(ctx)
	if err != nil {
		return nil, err
	}
	return &RootView{page: page}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.page.Updates()
}

// Parse builds the main page's template, with the websocket bootstrap and control code,
// and returns its name. It also sets up the func-map the child components depend on.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(
		template.FuncMap{
			"add":  func(i, j int) int { return i + j },
			"sub":  func(i, j int) int { return i - j },
			"mult": func(i, j int) int { return i * j },
			"div":  func(i, j int) int { return i / j },
		})

	var bodySpec string
	for _, vc := range rv.page.Views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			return "", parseErr
		}
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<title>Pathfinding Visualizer (BFS vs DFS)</title>
			<style>
				body { font-family: sans-serif; margin: 20px; }
				.buttons { margin-bottom: 10px; }
				.buttons button, .buttons select { margin-right: 6px; }
				.timings p { margin: 4px 0; }
				.grid svg { cursor: pointer; }
			</style>
			<script>
				const ws = new WebSocket("ws://" + location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened")
				};

				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				// When the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (!ele) {
							continue
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else if (op.Key === "value") {
								ele.value = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}

				function send(command) {
					if (ws.readyState === WebSocket.OPEN) {
						ws.send(JSON.stringify(command))
					}
				}

				// Cells are painted on mouse down, and on entering them while the button is held.
				let mouseDown = false;
				function paint(event) {
					const row = event.target.dataset.row
					const col = event.target.dataset.col
					if (row === undefined || col === undefined) {
						return
					}
					send({command: "paint", row: parseInt(row), col: parseInt(col)})
				}

				window.addEventListener("DOMContentLoaded", function () {
					const grid = document.getElementById("gridview")
					grid.addEventListener("mousedown", function (event) {
						mouseDown = true
						paint(event)
					})
					grid.addEventListener("mouseover", function (event) {
						if (mouseDown) {
							paint(event)
						}
					})
					document.addEventListener("mouseup", function () { mouseDown = false })
				})
			</script>
		</head>
		<body>
			<h1 class="title">Pathfinding Visualizer (BFS vs DFS)</h1>
			<div class="buttons">
				<button onclick='send({command: "bfs"})'>Start BFS</button>
				<button onclick='send({command: "dfs"})'>Start DFS</button>
				<button onclick='send({command: "stop"})'>Stop</button>
				<button onclick='send({command: "clear"})'>Clear Visited</button>
				<button onclick='send({command: "reset"})'>Reset</button>
				<select id="mode" onchange='send({command: "mode", mode: this.value})'>
					<option value="wall" {{ if eq .Mode "wall" }}selected{{ end }}>Wall</option>
					<option value="start" {{ if eq .Mode "start" }}selected{{ end }}>Start Node</option>
					<option value="end" {{ if eq .Mode "end" }}selected{{ end }}>End Node</option>
				</select>
			</div>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}
