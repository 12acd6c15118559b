package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"pathviz/metrics"
	"pathviz/server/cell_views"
	"pathviz/server/fastview"
	"pathviz/server/root_view"
	"pathviz/session"

	"github.com/gorilla/mux"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves the visualizer page, its websocket, and a REST api over the same session.
// Every websocket client gets its own views, fed by its own session subscription, so any
// number of pages can watch and drive the session at once.
type Server struct {
	addr    string
	session *session.Session
	logger  *slog.Logger
	router  *mux.Router
}

// NewServer returns a server for the passed session.
func NewServer(
	addr string,
	sess *session.Session,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		addr:    addr,
		session: sess,
		logger:  logger,
	}
	server.router = server.routes()
	return server
}

func (server *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/grid", server.getGrid).Methods(http.MethodGet)
	api.HandleFunc("/runs/{algorithm}", server.postRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/active", server.deleteRun).Methods(http.MethodDelete)
	api.HandleFunc("/mode", server.putMode).Methods(http.MethodPut)
	api.HandleFunc("/cells/{row:[0-9]+}/{col:[0-9]+}", server.postCell).Methods(http.MethodPost)
	api.HandleFunc("/reset", server.postReset).Methods(http.MethodPost)
	api.HandleFunc("/visited/clear", server.postClearVisited).Methods(http.MethodPost)
	return router
}

// Handler returns the server's router.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              server.addr,
		Handler:           server.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errs := make(chan error, 1)
	go func() {
		server.logger.Info("serving", "addr", server.addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes the session's frames to the client as ele-updates, and applies
// the commands the client sends.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rootView, err := root_view.NewRootView(ctx, server.session)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cli, err := fastview.NewClient(rootView.Updates(), server.onMessage, w, r.WithContext(ctx))
	if err != nil {
		server.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	metrics.ClientConnected()
	defer metrics.ClientDisconnected()
	server.logger.Debug("client connected", "remote", r.RemoteAddr)

	if err := cli.Sync(); err != nil {
		server.logger.Warn("client sync ended", "remote", r.RemoteAddr, "err", err)
		return
	}
	server.logger.Debug("client disconnected", "remote", r.RemoteAddr)
}

// serveIndex renders the page over the session's current frame.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rootView, err := root_view.NewRootView(ctx, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	board := cell_views.Convert(server.session.Snapshot())
	if err := renderTemplate(&page, rootView, board); err != nil {
		server.logger.Error("render index", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = page.WriteTo(w)
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
