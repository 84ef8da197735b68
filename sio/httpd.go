/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
)

// Remote is the remote-control server.
//
// Routes:
//
//	GET  /ws       websocket: text frames are Requests; the firehose of
//	               transitions and commands comes back
//	POST /request  a Request as YAML or JSON
//	POST /dial     body is a dial string
//	POST /reset
//	POST /done     a driver's report of a finished sound (see ParseDone)
//	GET  /state    the Engine's Snapshot
//	GET  /book     the running phonebook as HTML
//	GET  /metrics
//
// Warning: The firehose goes to ALL websocket clients.
type Remote struct {
	Engine *Engine

	// Gatherer serves /metrics.  Defaults to
	// prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// RenderBook, if not nil, serves /book.
	RenderBook func(w io.Writer, b *core.Book) error

	// MaxConns limits concurrent connections when positive.
	MaxConns int

	// Ending, if not nil, hears about finished sounds from /done.
	Ending *Ending

	firehose chan interface{}
	conns    sync.Map
	connId   atomic.Uint64
}

// NewRemote makes a Remote for the Engine.
func NewRemote(e *Engine) *Remote {
	return &Remote{
		Engine:   e,
		Gatherer: prometheus.DefaultGatherer,
		firehose: make(chan interface{}, 1024),
	}
}

// FirehoseMessage is what websocket clients receive.
type FirehoseMessage struct {
	Transition *Transition `json:"transition,omitempty"`
	Command    *Command    `json:"command,omitempty"`
	Error      string      `json:"error,omitempty"`
	Posted     int         `json:"posted,omitempty"`
}

func (s *Remote) hose(ctx context.Context, x *FirehoseMessage) {
	select {
	case s.firehose <- x:
	default:
		logger.DebugKV(ctx, "firehose full")
	}
}

// Observe sends the transition to the firehose.
func (s *Remote) Observe(ctx context.Context, t *Transition) {
	s.hose(ctx, &FirehoseMessage{Transition: t})
}

// Actuate sends the command to the firehose.
func (s *Remote) Actuate(ctx context.Context, c *Command) error {
	s.hose(ctx, &FirehoseMessage{Command: c})
	return nil
}

// RunFirehose fans firehose messages out to websocket clients until
// the context is done.
func (s *Remote) RunFirehose(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case x := <-s.firehose:
			s.conns.Range(func(k, v interface{}) bool {
				c := v.(chan interface{})
				select {
				case c <- x:
				default:
					logger.DebugKV(ctx, "firehose blocked", "conn", k)
				}
				return true
			})
		}
	}
}

// Handler makes the router.
func (s *Remote) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/ws", s.ws)
	r.Post("/request", s.request)
	r.Post("/dial", s.dial)
	r.Post("/reset", s.reset)
	r.Post("/done", s.done)
	r.Get("/state", s.state)
	r.Get("/book", s.book)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))

	return r
}

// Listen makes the listener, which is limited to MaxConns.
func (s *Remote) Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if 0 < s.MaxConns {
		ln = netutil.LimitListener(ln, s.MaxConns)
	}
	return ln, nil
}

// Serve serves on the listener until the context is done.
func (s *Remote) Serve(ctx context.Context, ln net.Listener) error {
	ctx = logger.WithName(ctx, "remote")

	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go s.RunFirehose(ctx)

	go func() {
		<-ctx.Done()
		shut, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shut)
	}()

	logger.InfoKV(ctx, "serving", "addr", ln.Addr().String(), "max_conns", s.MaxConns)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe is Listen and then Serve.
func (s *Remote) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := s.Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Remote) post(ctx context.Context, evs []core.Event) error {
	for _, ev := range evs {
		if err := s.Engine.Events().Post(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, x interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(x); err != nil {
		logger.Logger().Warnw("response encode", "error", err)
	}
}

func (s *Remote) respondPosted(w http.ResponseWriter, r *http.Request, evs []core.Event) {
	if err := s.post(r.Context(), evs); err != nil {
		status := http.StatusServiceUnavailable
		if !errors.Is(err, ErrClosed) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, &FirehoseMessage{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, &FirehoseMessage{Posted: len(evs)})
}

func (s *Remote) request(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &FirehoseMessage{Error: err.Error()})
		return
	}
	evs, err := requestEvents(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &FirehoseMessage{Error: err.Error()})
		return
	}
	s.respondPosted(w, r, evs)
}

func requestEvents(body []byte) ([]core.Event, error) {
	req, err := ParseRequest(body)
	if err != nil {
		return nil, err
	}
	return req.Events()
}

func (s *Remote) dial(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &FirehoseMessage{Error: err.Error()})
		return
	}
	s.respondPosted(w, r, core.Symbols(core.ParseDialString(string(body))...))
}

func (s *Remote) reset(w http.ResponseWriter, r *http.Request) {
	s.respondPosted(w, r, []core.Event{core.Reset{}})
}

func (s *Remote) done(w http.ResponseWriter, r *http.Request) {
	if s.Ending == nil {
		http.NotFound(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &FirehoseMessage{Error: err.Error()})
		return
	}
	report, err := ParseDone(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &FirehoseMessage{Error: err.Error()})
		return
	}
	ended, err := s.Ending.Done(r.Context(), report.State, report.Sound)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, &FirehoseMessage{Error: err.Error()})
		return
	}
	posted := 0
	if ended {
		posted = 1
	}
	writeJSON(w, http.StatusAccepted, &FirehoseMessage{Posted: posted})
}

func (s *Remote) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Snapshot())
}

func (s *Remote) book(w http.ResponseWriter, r *http.Request) {
	if s.RenderBook == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.RenderBook(w, s.Engine.Book()); err != nil {
		logger.WarnKV(r.Context(), "render book", "error", err)
	}
}

var upgrader = websocket.Upgrader{}

func (s *Remote) ws(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(ctx, "upgrade", "error", err)
		return
	}
	defer c.Close()

	var wmu sync.Mutex
	write := func(x interface{}) {
		js, err := json.Marshal(x)
		if err != nil {
			logger.WarnKV(ctx, "firehose marshal", "error", err)
			return
		}
		wmu.Lock()
		defer wmu.Unlock()
		if err = c.WriteMessage(websocket.TextMessage, js); err != nil {
			logger.DebugKV(ctx, "ws write", "error", err)
		}
	}

	ctl := make(chan bool)
	defer close(ctl)

	firehose := make(chan interface{}, 32)

	id := fmt.Sprintf("%s#%d", r.RemoteAddr, s.connId.Add(1))
	s.conns.Store(id, firehose)
	defer s.conns.Delete(id)

	go func() {
		for {
			select {
			case <-ctl:
				return
			case <-ctx.Done():
				return
			case x := <-firehose:
				write(x)
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			logger.DebugKV(ctx, "ws read", "conn", id, "error", err)
			return
		}
		evs, err := requestEvents(message)
		if err == nil {
			err = s.post(ctx, evs)
		}
		if err != nil {
			write(&FirehoseMessage{Error: err.Error()})
			continue
		}
		write(&FirehoseMessage{Posted: len(evs)})
	}
}
