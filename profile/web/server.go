// Package web implements the SAMP Web Profile: a single HTTP/JSON
// endpoint multiplexing many browser clients, origin-based authorization,
// CORS, and per-client pull-queues in place of the Standard Profile's
// outbound callback POSTs.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lvalerom/samphub/codex"
	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/transport"
)

// KeyPrefix distinguishes Web Profile private keys from Standard Profile
// ones when both profiles front the same hub core (spec §4.6).
const KeyPrefix = "wk:"

// Options configures a Server.
type Options struct {
	Hub              *hub.Hub
	ClientAuthorizer ClientAuthorizer
	OriginAuthorizer OriginAuthorizer
	MaxPendingQueue  int
	// HTTPWorkers bounds concurrent in-flight handleHTTP calls (spec §5
	// default 20), including long-held pullCallbacks requests.
	HTTPWorkers int
	Logger      *slog.Logger
}

// Server is the Web Profile's single HTTP endpoint.
type Server struct {
	hub        *hub.Hub
	dispatcher *transport.Dispatcher
	wire       codex.Codex
	clientAuth ClientAuthorizer
	originAuth OriginAuthorizer
	maxQueue   int
	logger     *slog.Logger

	listener   net.Listener
	httpServer *http.Server
	url        string
	workerSem  chan struct{}

	mu     sync.Mutex
	queues map[string]*pullQueue // raw (unprefixed) private key -> queue
}

// New constructs a Server without starting it.
func New(opts Options) *Server {
	clientAuth := opts.ClientAuthorizer
	if clientAuth == nil {
		clientAuth = AllowAllAuthorizer{}
	}
	originAuth := opts.OriginAuthorizer
	if originAuth == nil {
		originAuth = AllowAllOrigins{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxQueue := opts.MaxPendingQueue
	if maxQueue <= 0 {
		maxQueue = 4096
	}
	workers := opts.HTTPWorkers
	if workers <= 0 {
		workers = 20
	}
	s := &Server{
		hub:        opts.Hub,
		dispatcher: transport.NewDispatcher(),
		wire:       codex.JSONCodex{},
		clientAuth: clientAuth,
		originAuth: originAuth,
		maxQueue:   maxQueue,
		logger:     logger,
		queues:     make(map[string]*pullQueue),
		workerSem:  make(chan struct{}, workers),
	}
	s.registerMethods()
	return s
}

// Start binds port (0 for an OS-assigned ephemeral port) and begins
// serving.
func (s *Server) Start(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("binding web profile listener: %w", err)
	}
	s.listener = listener
	s.url = fmt.Sprintf("http://%s/", listener.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withWorkerLimit(s.handleHTTP))
	s.httpServer = &http.Server{
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second, // pullCallbacks can legitimately hold the connection open
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("web profile server stopped", "error", err)
		}
	}()

	s.logger.Info("web profile listening", "url", s.url)
	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// URL returns the endpoint this server is listening on.
func (s *Server) URL() string { return s.url }

// withWorkerLimit bounds concurrent handler execution to the server's
// worker pool size. A long-held pullCallbacks request occupies its worker
// for up to its poll timeout, same as any other request; excess requests
// queue on the semaphore rather than running unbounded.
func (s *Server) withWorkerLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.workerSem <- struct{}{}:
			defer func() { <-s.workerSem }()
			next(w, r)
		case <-r.Context().Done():
		}
	}
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	if r.Method == http.MethodOptions {
		s.writeCORSHeaders(w, origin)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if origin != "" && s.originAuth.AllowOrigin(origin) {
		s.writeCORSHeaders(w, origin)
	}

	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	var envelope struct {
		Method string            `json:"samp.methodName"`
		Params []json.RawMessage `json:"samp.params"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "malformed request envelope", http.StatusBadRequest)
		return
	}

	params := make([]sampvalue.Value, 0, len(envelope.Params))
	for _, raw := range envelope.Params {
		v, err := s.wire.Unmarshal(raw)
		if err != nil {
			http.Error(w, "malformed request parameter", http.StatusBadRequest)
			return
		}
		params = append(params, v)
	}

	if envelope.Method == "samp.hub.register" {
		switch s.clientAuth.Authorize(origin) {
		case Allow:
			// fall through to normal dispatch
		default:
			s.logger.Debug("web registration denied", "origin", origin)
			http.Error(w, "registration not authorized for this origin", http.StatusForbidden)
			return
		}
	}

	result, callErr := s.dispatcher.Dispatch(envelope.Method, params)

	w.Header().Set("Content-Type", "application/json")

	if callErr != nil {
		var authFailure *hub.AuthFailure
		if errors.As(callErr, &authFailure) {
			s.logger.Debug("web auth failure", "method", envelope.Method, "reason", authFailure.Reason)
		} else {
			s.logger.Debug("web method call failed", "method", envelope.Method, "error", callErr)
		}
		fault := transport.FaultMapping(callErr)
		encoded, _ := s.wire.Marshal(fault)
		w.Write(encoded)
		return
	}

	response := sampvalue.NewMapping()
	response.Set("samp.result", resultOrEmpty(result))
	encoded, err := s.wire.Marshal(response)
	if err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Write(encoded)
}

func (s *Server) writeCORSHeaders(w http.ResponseWriter, origin string) {
	if origin == "" || !s.originAuth.AllowOrigin(origin) {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func resultOrEmpty(result sampvalue.Value) sampvalue.Value {
	if result == nil {
		return ""
	}
	return result
}
