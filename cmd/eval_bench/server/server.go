package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/constants"
	"github.com/eval-bench/eval-bench/internal/gateway"
	"github.com/eval-bench/eval-bench/internal/handlers"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/queue"
	"github.com/go-playground/validator/v10"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerClosedError signals a clean listener shutdown to the caller.
type ServerClosedError struct{}

func (e *ServerClosedError) Error() string {
	return http.ErrServerClosed.Error()
}

func (e *ServerClosedError) Is(target error) bool {
	_, ok := target.(*ServerClosedError)
	return ok
}

type Server struct {
	httpServer    *http.Server
	port          int
	logger        *slog.Logger
	serviceConfig *config.Config
	scheduler     *queue.Scheduler
	gateway       *gateway.Gateway
	archive       abstractions.Archive
	validate      *validator.Validate
}

// NewServer creates the HTTP server. Routing uses the standard library
// ServeMux: routes switch on the HTTP method, create the ExecutionContext
// at the route level and hand request/response wrappers to the handlers.
// Every route is wrapped with the Prometheus metrics middleware.
func NewServer(logger *slog.Logger,
	serviceConfig *config.Config,
	scheduler *queue.Scheduler,
	gw *gateway.Gateway,
	archive abstractions.Archive,
	validate *validator.Validate) (*Server, error) {

	if logger == nil {
		return nil, fmt.Errorf("logger is required for the server")
	}
	if (serviceConfig == nil) || (serviceConfig.Service == nil) {
		return nil, fmt.Errorf("service config is required for the server")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required for the server")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway is required for the server")
	}
	if validate == nil {
		return nil, fmt.Errorf("validator is required for the server")
	}

	return &Server{
		port:          serviceConfig.Service.Port,
		logger:        logger,
		serviceConfig: serviceConfig,
		scheduler:     scheduler,
		gateway:       gw,
		archive:       archive,
		validate:      validate,
	}, nil
}

func (s *Server) GetPort() int {
	return s.port
}

// loggerWithRequest enhances the base logger with request fields so logs can
// be correlated across services via the request id. The id comes from the
// X-Global-Transaction-Id header or is generated when missing.
func (s *Server) loggerWithRequest(r *http.Request) (string, *slog.Logger) {
	requestID := r.Header.Get("X-Global-Transaction-Id")
	if requestID == "" {
		requestID = uuid.New().String() // generate a UUID if not present
	}

	enhancedLogger := s.logger.With(constants.LOG_REQUEST_ID, requestID)

	method := r.Method
	if method != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_METHOD, method)
	}

	uri := ""
	if r.URL != nil {
		uri = r.URL.Path
	}
	if uri == "" {
		uri = r.RequestURI
	}
	if uri != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_URI, uri)
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_USER_AGENT, userAgent)
	}

	remoteAddr := r.RemoteAddr
	if remoteAddr != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REMOTE_ADR, remoteAddr)
	}

	referer := r.Header.Get("Referer")
	if referer != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REFERER, referer)
	}

	return requestID, enhancedLogger
}

func (s *Server) setupRoutes() (http.Handler, error) {
	router := http.NewServeMux()
	h := handlers.New(s.scheduler, s.gateway, s.archive, s.validate, s.serviceConfig)

	// Health and status endpoints
	router.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleHealth(ctx, req, resp, s.serviceConfig.Service.Build, s.serviceConfig.Service.BuildDate)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleStatus(ctx, req, resp, s.serviceConfig.Service.Version)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Submission endpoint
	router.HandleFunc("/api/v1/queue/runs", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleSubmitRuns(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Queue control endpoints
	router.HandleFunc("/api/v1/queue/start", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleStartQueue(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/queue", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleGetQueue(ctx, req, resp)
		case http.MethodDelete:
			h.HandleCancelQueue(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/queue/reorder", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleReorderQueue(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/queue/duplicate", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleDuplicateItem(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/queue/items/{%s}", constants.PATH_PARAMETER_ITEM_INDEX), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodDelete:
			h.HandleRemoveItem(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Run snapshot endpoints
	router.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleListRuns(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}", constants.PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleGetRun(ctx, req, resp)
		case http.MethodDelete:
			h.HandleCancelRun(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Archived runs endpoint
	router.HandleFunc("/api/v1/archive/runs", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleListArchivedRuns(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Live progress stream. The gateway owns the websocket lifecycle so the
	// route hands over the raw writer without wrappers.
	router.HandleFunc("/api/v1/ws/progress", s.gateway.HandleWebSocket)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Enable CORS in local mode only (for development/testing)
	handler := http.Handler(router)
	if s.serviceConfig.Service.LocalMode {
		handler = CorsMiddleware(handler, s.serviceConfig)
	}

	// Wrap with metrics middleware (outermost for complete observability)
	handler = Middleware(handler)

	return handler, nil
}

// SetupRoutes exposes the route setup for testing
func (s *Server) SetupRoutes() (http.Handler, error) {
	return s.setupRoutes()
}

func (s *Server) Start() error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Writing the server ready message", "file", s.serviceConfig.Service.ReadyFile)
	err = WriteReadyFile(s.serviceConfig, s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("Server starting", "port", s.port)
	err = s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return &ServerClosedError{}
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server gracefully...")

	return s.httpServer.Shutdown(ctx)
}
