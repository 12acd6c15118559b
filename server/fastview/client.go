package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// The rate at which ele-updates are sent to the client, so as not to overburden it.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 200
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// MessageHandler receives each message read from the client.
type MessageHandler func(ctx context.Context, msg []byte)

// Client publishes updates to a web client over a websocket, and passes the client's
// messages to a handler. Updates must be idempotent: only the latest is guaranteed to
// be sent, intervening ones are dropped when they arrive faster than the publication rate.
type Client[T any] struct {
	updates   <-chan T
	onMessage MessageHandler
	ws        *websock
	rootCtx   context.Context
}

// NewClient upgrades the request to a websocket and returns a client publishing the passed
// updates to it. onMessage may be nil, in which case client messages are discarded.
func NewClient[T any](
	updates <-chan T,
	onMessage MessageHandler,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied to the client
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	return &Client[T]{
		updates:   updates,
		onMessage: onMessage,
		ws:        NewWebSocket(ws),
		rootCtx:   r.Context(),
	}, nil
}

// Sync runs the read, ping-pong and publish routines until any of them ends, then closes
// the websocket. It returns nil upon client disconnect or closure of the updates channel,
// or an error if an unexpected error occurred.
func (cli *Client[T]) Sync() error {
	ctx, cancel := context.WithCancel(cli.rootCtx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.publish(groupCtx)
	})
	// The reader blocks in the socket until it closes, so closing is what unblocks it.
	group.Go(func() error {
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	return group.Wait()
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// pingPong runs the client liveness check.
// NOTE: This requires that readMessages is running so the pong handler is called.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if isError(err) {
					err = fmt.Errorf("ping failed: %T %w", err, err)
				}
			}
			return
		})
}

// readMessages passes messages from the client to the handler. Errors returned by websocket
// Read methods are permanent, hence any error ends the client; a normal closure is not an error.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		var msg []byte
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, msg, readErr = ws.ReadMessage()
				return
			})
		if err != nil {
			if isClosure(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if cli.onMessage != nil && msg != nil {
			cli.onMessage(ctx, msg)
		}
	}
}

// publish sends at most one update per pubResolution. Updates arriving in between replace
// the pending one, which is sent on the next tick, so the latest update is always delivered.
func (cli *Client[T]) publish(ctx context.Context) error {
	var (
		pending    T
		hasPending bool
	)
	ticks := channerics.NewTicker(ctx.Done(), pubResolution)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-cli.updates:
			// Graceful input channel closure
			if !ok {
				if hasPending {
					return cli.write(ctx, pending)
				}
				return nil
			}
			pending, hasPending = update, true
		case <-ticks:
			if !hasPending {
				break
			}
			if err := cli.write(ctx, pending); err != nil {
				return err
			}
			hasPending = false
		}
	}
}

func (cli *Client[T]) write(ctx context.Context, update T) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (writeErr error) {
			if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
				writeErr = fmt.Errorf("failed to set deadline: %T %w", writeErr, writeErr)
				return
			}

			if writeErr = ws.WriteJSON(update); writeErr != nil {
				if isError(writeErr) {
					writeErr = fmt.Errorf("publish failed: %T %w", writeErr, writeErr)
				}
			}
			return
		})
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline    = time.Second
	closeGracePeriod = 100 * time.Millisecond
)

// websock serializes writes to the websocket, whose requirement is that there may be
// only one concurrent writer (and one reader) at a time.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
	closed   chan struct{}
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
		closed:   make(chan struct{}),
	}
}

// Conn returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close message, waits briefly for the peer, and closes the connection.
// A reader blocked on the connection is released with an error.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = sock.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-sock.writeSem
	case <-time.After(writeDeadline):
	}
	time.Sleep(closeGracePeriod)
	close(sock.closed)
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket. There is only ever one reader,
// so it blocks in the socket rather than timing out on congestion.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket. Once ctx is done the socket is
// being closed, so writes are skipped and their failures ignored.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	if ctx.Err() != nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case <-sock.closed:
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		if err := writeFn(sock.ws); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
