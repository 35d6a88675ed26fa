// Package launchapi exposes the contribution ledger and the distribution
// queue over HTTP. Reads are public; every mutation acts as the subject of
// the caller's bearer token.
package launchapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"launchpad/core/events"
	"launchpad/core/runtime"
	"launchpad/crypto"
	"launchpad/observability"
)

const moduleName = "launchapi"

// Ledger is the runtime surface the API drives.
type Ledger interface {
	Do(ctx context.Context, op string, fn func(*runtime.Engines) error) error
	View(ctx context.Context, fn func(*runtime.Engines) error) error
	Subscribe(sub events.Emitter) func()
}

// Config captures the dependencies required to construct the server.
type Config struct {
	Ledger            Ledger
	Auth              *Authenticator
	RequestsPerMinute float64
	Burst             int
	MaxBodyBytes      int64
	// OriginPatterns restricts websocket origins. Empty allows same-origin only.
	OriginPatterns []string
	Logger         *slog.Logger
}

// Server encapsulates dependencies for the HTTP API.
type Server struct {
	ledger  Ledger
	auth    *Authenticator
	limiter *RateLimiter
	maxBody int64
	origins []string
	logger  *slog.Logger

	router http.Handler
}

// New constructs a configured router.
func New(cfg Config) (*Server, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("launchapi: ledger required")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("launchapi: authenticator required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		ledger:  cfg.Ledger,
		auth:    cfg.Auth,
		limiter: NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		maxBody: cfg.MaxBodyBytes,
		origins: cfg.OriginPatterns,
		logger:  logger.With("component", moduleName),
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the instrumented HTTP router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, moduleName)
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Use(s.limiter.Middleware)

		api.Get("/state", s.getState)
		api.Get("/rate", s.getRate)
		api.Get("/contributors/{wallet}", s.getContributor)
		api.Get("/dispenser/state", s.getDispenserState)
		api.Get("/distributions/{id}", s.getDistribution)
		api.Get("/accounts/{owner}", s.getAccount)
		api.Get("/events/ws", s.streamEvents)

		api.Group(func(protected chi.Router) {
			protected.Use(s.auth.Middleware)

			protected.Post("/contributions", s.contribute)
			protected.Post("/accounts", s.openAccount)
			protected.Route("/admin", func(admin chi.Router) {
				admin.Post("/pause", s.pauseSale)
				admin.Post("/unpause", s.unpauseSale)
				admin.Post("/authority/propose", s.proposeSaleAuthority)
				admin.Post("/authority/accept", s.acceptSaleAuthority)
				admin.Post("/authority/cancel", s.cancelSaleAuthority)
				admin.Post("/limits", s.updateSaleLimits)
				admin.Post("/mark-distributed", s.markDistributed)
				admin.Post("/finalize", s.finalizePool)
			})

			protected.Post("/distributions", s.enqueue)
			protected.Post("/distributions/{id}/execute", s.execute)
			protected.Post("/distributions/{id}/cancel", s.cancel)
			protected.Route("/dispenser", func(disp chi.Router) {
				disp.Post("/pause", s.pauseDispenser)
				disp.Post("/unpause", s.unpauseDispenser)
				disp.Post("/limits", s.updateDispenserLimits)
				disp.Post("/operators", s.addOperator)
				disp.Delete("/operators/{addr}", s.removeOperator)
				disp.Post("/authority/propose", s.proposeDispenserAuthority)
				disp.Post("/authority/accept", s.acceptDispenserAuthority)
				disp.Post("/authority/cancel", s.cancelDispenserAuthority)
			})
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.View(r.Context(), func(*runtime.Engines) error { return nil })
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// run executes a mutation as the authenticated caller and writes its result.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op string, fn func(caller crypto.Address, e *runtime.Engines) (interface{}, error)) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", RequestID: requestIDFrom(r.Context())})
		return
	}
	var result interface{}
	err := s.ledger.Do(r.Context(), op, func(e *runtime.Engines) error {
		var err error
		result, err = fn(caller, e)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if result == nil {
		result = map[string]string{"status": "ok"}
	}
	writeJSON(w, http.StatusOK, result)
}

// view executes a read and writes its result.
func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(e *runtime.Engines) (interface{}, error)) {
	var result interface{}
	err := s.ledger.View(r.Context(), func(e *runtime.Engines) error {
		var err error
		result, err = fn(e)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.ModuleMetrics().Observe(moduleName, r.Method+" "+route, status, time.Since(start))
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

func pathAddress(r *http.Request, param string) (crypto.Address, error) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, param))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %w", param, errInvalidPayload)
	}
	return addr, nil
}
