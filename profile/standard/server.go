// Package standard implements the SAMP Standard Profile: lockfile-based
// local discovery plus an XML-RPC server that both receives hub method
// calls and POSTs callbacks back out to registered clients.
package standard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lvalerom/samphub/config"
	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/lockfile"
	"github.com/lvalerom/samphub/sampvalue"
	"github.com/lvalerom/samphub/transport"
	"github.com/lvalerom/samphub/xmlrpc"
)

// Options configures a Server.
type Options struct {
	Hub             *hub.Hub
	LockfilePath    string // empty resolves via lockfile.Locate
	CallbackTimeout time.Duration
	// HTTPWorkers bounds concurrent in-flight handleRPC calls (spec §5
	// default 20); further requests queue behind the worker semaphore
	// rather than spawning unbounded goroutines off net/http's own pool.
	HTTPWorkers int
	Logger      *slog.Logger
}

// Server is the Standard Profile's XML-RPC endpoint: it owns the lockfile's
// lifecycle and the secret gating samp.hub.register, following the
// teacher's httprest's habit of bundling transport state into one struct.
type Server struct {
	hub        *hub.Hub
	dispatcher *transport.Dispatcher
	outbound   *transport.Outbound
	secret     string
	lockPath   string
	url        string
	listener   net.Listener
	httpServer *http.Server
	logger     *slog.Logger
	workerSem  chan struct{}
}

// New constructs a Server without starting it.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.CallbackTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	workers := opts.HTTPWorkers
	if workers <= 0 {
		workers = 20
	}
	s := &Server{
		hub:        opts.Hub,
		dispatcher: transport.NewDispatcher(),
		outbound:   transport.NewOutbound(timeout),
		lockPath:   opts.LockfilePath,
		logger:     logger,
		workerSem:  make(chan struct{}, workers),
	}
	s.registerMethods()
	return s
}

// Start allocates a port, mints the shared secret, writes the lockfile, and
// begins serving. The listen port is always ephemeral (port 0): the
// Standard Profile has no fixed well-known port; clients find it through
// the lockfile.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("binding standard profile listener: %w", err)
	}
	s.listener = listener

	secret, err := hub.NewSecret()
	if err != nil {
		listener.Close()
		return fmt.Errorf("minting samp.secret: %w", err)
	}
	s.secret = secret

	port := listener.Addr().(*net.TCPAddr).Port
	s.url = fmt.Sprintf("http://%s:%d/", config.ResolveLocalhost(), port)

	path := s.lockPath
	if path == "" {
		path, err = lockfile.Locate("")
		if err != nil {
			listener.Close()
			return fmt.Errorf("locating lockfile: %w", err)
		}
	}
	s.lockPath = path

	info := lockfile.New()
	info.Set(lockfile.KeySecret, s.secret)
	info.Set(lockfile.KeyHubXMLRPCURL, s.url)
	info.Set(lockfile.KeyProfileVersion, lockfile.ProfileVersion)
	if err := lockfile.WriteAtomic(s.lockPath, info); err != nil {
		listener.Close()
		return fmt.Errorf("writing lockfile: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withWorkerLimit(s.handleRPC))
	s.httpServer = &http.Server{
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("standard profile server stopped", "error", err)
		}
	}()

	s.logger.Info("standard profile listening", "url", s.url, "lockfile", s.lockPath)
	return nil
}

// Stop shuts down the HTTP server and removes the lockfile, best-effort, in
// that order. The hub may be shared with a Web Profile server started
// against the same hub.Hub; shutting it down is its caller's
// responsibility, not this server's.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.lockPath != "" {
		if rmErr := lockfile.Remove(s.lockPath); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

// URL returns the XML-RPC endpoint this server is listening on.
func (s *Server) URL() string { return s.url }

// withWorkerLimit bounds concurrent handler execution to the server's
// worker pool size; a request that arrives with every worker busy queues
// on the semaphore rather than running unbounded, and gives up only if
// the client disconnects first.
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

// handleRPC decodes a method call, dispatches it, and encodes back either a
// normal response or a fault. Auth failures are logged at Debug only, per
// the failure-handling convention against scan amplification.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	call, err := xmlrpc.DecodeMethodCall(body)
	if err != nil {
		http.Error(w, "malformed XML-RPC method call", http.StatusBadRequest)
		return
	}

	result, callErr := s.dispatcher.Dispatch(call.MethodName, call.Params)

	w.Header().Set("Content-Type", "text/xml")

	if callErr != nil {
		var authFailure *hub.AuthFailure
		if errors.As(callErr, &authFailure) {
			s.logger.Debug("auth failure", "method", call.MethodName, "reason", authFailure.Reason)
		} else {
			s.logger.Debug("method call failed", "method", call.MethodName, "error", callErr)
		}
		fault := &xmlrpc.Fault{Code: faultCode(callErr), Message: faultText(callErr)}
		w.Write(xmlrpc.EncodeFaultResponse(fault))
		return
	}

	encoded, err := xmlrpc.EncodeMethodResponse(resultParams(result))
	if err != nil {
		fault := &xmlrpc.Fault{Code: transport.FaultCodeMethodError, Message: err.Error()}
		w.Write(xmlrpc.EncodeFaultResponse(fault))
		return
	}
	w.Write(encoded)
}

// resultParams wraps a handler's single return value as the one-element
// params list XML-RPC expects; a nil result (void methods) sends an empty
// string, matching the reference hub's convention for no-op acknowledgements.
func resultParams(result sampvalue.Value) []sampvalue.Value {
	if result == nil {
		return []sampvalue.Value{""}
	}
	return []sampvalue.Value{result}
}

func faultCode(err error) int {
	if _, ok := err.(*transport.RemoteFailure); ok {
		return transport.FaultCodeUnknownMethod
	}
	return transport.FaultCodeMethodError
}
