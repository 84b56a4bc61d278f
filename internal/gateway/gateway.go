// ABOUTME: Top-level gateway wiring: registry, controller, hub, HTTP server
// ABOUTME: Run blocks until context cancellation, then shuts down gracefully

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/a2a"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/approval"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/auth"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/config"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/hub"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/metrics"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/orchestrator"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/registry"
)

// idleSweepInterval is how often the idle-session sweeper runs.
const idleSweepInterval = time.Minute

// Gateway is the assembled trip-planning server.
type Gateway struct {
	config     *config.Config
	logger     *slog.Logger
	registry   *registry.Registry
	invoker    *a2a.Gateway
	gate       *approval.Gate
	controller *orchestrator.Controller
	hub        *hub.Hub
	metrics    *metrics.Metrics

	httpServer *http.Server
}

// New assembles a gateway from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries := make([]registry.Entry, len(cfg.Agents))
	for i, a := range cfg.Agents {
		entries[i] = registry.Entry{
			Name:        a.Name,
			Endpoint:    a.Endpoint,
			Description: a.Description,
			Parameters:  a.Parameters,
		}
	}
	reg, err := registry.New(entries)
	if err != nil {
		return nil, fmt.Errorf("building agent registry: %w", err)
	}

	invoker := a2a.NewGateway(reg, cfg.Workflow.AgentTimeout, logger)
	gate := approval.NewGate(logger)

	var m *metrics.Metrics
	var promReg *prometheus.Registry
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		m = metrics.New(promReg)
	}

	h := hub.New(logger, hub.WithMetrics(m))

	ctrl := orchestrator.New(invoker, gate, h, orchestrator.StageAgents{
		Itinerary:  cfg.Workflow.ItineraryAgent,
		Weather:    cfg.Workflow.WeatherAgent,
		Restaurant: cfg.Workflow.RestaurantAgent,
		Budget:     cfg.Workflow.BudgetAgent,
	}, m, logger)

	gw := &Gateway{
		config:     cfg,
		logger:     logger.With("component", "gateway"),
		registry:   reg,
		invoker:    invoker,
		gate:       gate,
		controller: ctrl,
		hub:        h,
		metrics:    m,
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /health/ready", gw.handleReady)

	// API endpoints - auth required if JWT secret is configured
	api := http.Handler(gw.apiRoutes())
	if cfg.Auth.JWTSecret != "" {
		verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		api = auth.Middleware(verifier)(api)
		logger.Info("API authentication enabled")
	}
	mux.Handle("/api/", api)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Handler exposes the HTTP handler for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	// Capability cards are best-effort: a service that is down now can
	// still be called later.
	cardCtx, cancelCards := context.WithTimeout(ctx, 10*time.Second)
	g.registry.EnrichCards(cardCtx, g.invoker)
	cancelCards()

	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go g.hub.RunIdleSweep(sweepCtx, g.controller, g.config.Sessions.IdleTimeout, idleSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown stops the server with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := g.httpServer.Shutdown(ctx)
	g.controller.Close()
	g.hub.Close()
	return err
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once the agent registry is populated.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	if g.registry.Len() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no agents registered"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d agents)", g.registry.Len())
}
