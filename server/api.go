package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	gw "pathviz/grid_world"
	"pathviz/session"

	"github.com/gorilla/mux"
)

// Command is a message from the page. Command is one of bfs, dfs, stop, mode, paint,
// reset or clear; Mode is read by mode, Row and Col by paint.
type Command struct {
	Command string `json:"command"`
	Mode    string `json:"mode,omitempty"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
}

var ErrUnknownCommand = errors.New("unknown command")

// Apply dispatches the command to the session.
func (cmd Command) Apply(sess *session.Session) (err error) {
	switch cmd.Command {
	case "bfs", "dfs":
		var alg gw.Algorithm
		if alg, err = gw.ParseAlgorithm(cmd.Command); err == nil {
			_, err = sess.Start(alg)
		}
	case "stop":
		err = sess.Stop()
	case "mode":
		var mode session.Mode
		if mode, err = session.ParseMode(cmd.Mode); err == nil {
			err = sess.SetMode(mode)
		}
	case "paint":
		err = sess.Paint(gw.Coord{Row: cmd.Row, Col: cmd.Col})
	case "reset":
		err = sess.Reset()
	case "clear":
		err = sess.ResetVisited()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
	return
}

// onMessage applies a websocket command. Rejected commands are only logged: the page
// reflects the session state, whatever the outcome.
func (server *Server) onMessage(_ context.Context, msg []byte) {
	var cmd Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		server.logger.Debug("malformed command", "err", err)
		return
	}
	if err := cmd.Apply(server.session); err != nil {
		server.logger.Debug("command failed", "command", cmd.Command, "err", err)
	}
}

// CellDTO is a cell of the grid as served by the api.
type CellDTO struct {
	Row        int  `json:"row"`
	Col        int  `json:"col"`
	IsStart    bool `json:"isStart,omitempty"`
	IsEnd      bool `json:"isEnd,omitempty"`
	IsWall     bool `json:"isWall,omitempty"`
	VisitedBFS bool `json:"visitedBFS,omitempty"`
	VisitedDFS bool `json:"visitedDFS,omitempty"`
}

type TimingDTO struct {
	Algorithm   string  `json:"algorithm"`
	LastMillis  float64 `json:"lastMillis"`
	TotalMillis float64 `json:"totalMillis"`
	Runs        int64   `json:"runs"`
}

type RunDTO struct {
	RunID     string     `json:"runId"`
	Algorithm string     `json:"algorithm"`
	Outcome   string     `json:"outcome"`
	Visited   int        `json:"visited"`
	Distance  int        `json:"distance"`
	Path      []gw.Coord `json:"path,omitempty"`
	Millis    float64    `json:"millis"`
}

// GridDTO is the session frame as served by the api.
type GridDTO struct {
	Start   gw.Coord    `json:"start"`
	End     gw.Coord    `json:"end"`
	Mode    string      `json:"mode"`
	Running string      `json:"running,omitempty"`
	Cells   [][]CellDTO `json:"cells"`
	Track   []string    `json:"track"`
	Timings []TimingDTO `json:"timings"`
	Last    *RunDTO     `json:"last,omitempty"`
}

func toGridDTO(frame session.Frame) GridDTO {
	dto := GridDTO{
		Start:   frame.Grid.Start(),
		End:     frame.Grid.End(),
		Mode:    string(frame.Mode),
		Running: string(frame.Running),
		Track:   gw.Track(frame.Grid),
	}
	for _, row := range frame.Grid.Cells() {
		cells := make([]CellDTO, 0, len(row))
		for _, cell := range row {
			cells = append(cells, CellDTO{
				Row:        cell.Row,
				Col:        cell.Col,
				IsStart:    cell.IsStart,
				IsEnd:      cell.IsEnd,
				IsWall:     cell.IsWall,
				VisitedBFS: cell.IsVisitedBFS,
				VisitedDFS: cell.IsVisitedDFS,
			})
		}
		dto.Cells = append(dto.Cells, cells)
	}
	for _, timing := range frame.Timings {
		dto.Timings = append(dto.Timings, TimingDTO{
			Algorithm:   string(timing.Algorithm),
			LastMillis:  timing.LastMillis,
			TotalMillis: timing.TotalMillis,
			Runs:        timing.Runs,
		})
	}
	if last := frame.Last; last != nil {
		dto.Last = &RunDTO{
			RunID:     last.RunID,
			Algorithm: string(last.Algorithm),
			Outcome:   last.Outcome.String(),
			Visited:   last.Visited,
			Distance:  last.Distance,
			Path:      last.Path,
			Millis:    last.Millis,
		}
	}
	return dto
}

func (server *Server) getGrid(w http.ResponseWriter, r *http.Request) {
	server.writeJSON(w, http.StatusOK, toGridDTO(server.session.Snapshot()))
}

// postRun starts a run and replies 202, or with ?wait=true runs it to completion and
// replies with its report.
func (server *Server) postRun(w http.ResponseWriter, r *http.Request) {
	alg, err := gw.ParseAlgorithm(mux.Vars(r)["algorithm"])
	if err != nil {
		server.writeError(w, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		report, err := server.session.Run(r.Context(), alg)
		if err != nil {
			server.writeError(w, err)
			return
		}
		server.writeJSON(w, http.StatusOK, RunDTO{
			RunID:     report.RunID,
			Algorithm: string(alg),
			Outcome:   report.Outcome.String(),
			Visited:   report.Visited,
			Distance:  report.Distance,
			Path:      report.Path,
			Millis:    float64(report.Elapsed.Microseconds()) / 1000,
		})
		return
	}

	if _, err = server.session.Start(alg); err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusAccepted, map[string]string{"algorithm": string(alg)})
}

func (server *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := server.session.Stop(); err != nil {
		server.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) putMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("decode mode: %v", err), http.StatusBadRequest)
		return
	}
	mode, err := session.ParseMode(body.Mode)
	if err == nil {
		err = server.session.SetMode(mode)
	}
	server.reply(w, err)
}

func (server *Server) postCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	// the route only matches digits, so these cannot fail short of overflow
	row, rowErr := strconv.Atoi(vars["row"])
	col, colErr := strconv.Atoi(vars["col"])
	if err := errors.Join(rowErr, colErr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	server.reply(w, server.session.Paint(gw.Coord{Row: row, Col: col}))
}

func (server *Server) postReset(w http.ResponseWriter, r *http.Request) {
	server.reply(w, server.session.Reset())
}

// postClearVisited clears the visited flags of the algorithms named by the algorithm query
// parameter, or of all algorithms if there is none.
func (server *Server) postClearVisited(w http.ResponseWriter, r *http.Request) {
	var algs []gw.Algorithm
	for _, name := range r.URL.Query()["algorithm"] {
		alg, err := gw.ParseAlgorithm(name)
		if err != nil {
			server.writeError(w, err)
			return
		}
		algs = append(algs, alg)
	}
	server.reply(w, server.session.ResetVisited(algs...))
}

// reply writes the session's frame on success, or the error's status otherwise.
func (server *Server) reply(w http.ResponseWriter, err error) {
	if err != nil {
		server.writeError(w, err)
		return
	}
	server.writeJSON(w, http.StatusOK, toGridDTO(server.session.Snapshot()))
}

// statusOf maps session errors to http statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoActiveRun):
		return http.StatusNotFound
	case errors.Is(err, gw.ErrUnknownAlgorithm),
		errors.Is(err, session.ErrUnknownMode),
		errors.Is(err, gw.ErrOutOfBounds),
		errors.Is(err, gw.ErrSameCell):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (server *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		server.logger.Error("request failed", "err", err)
	}
	server.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (server *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		server.logger.Warn("write response", "err", err)
	}
}
