// ABOUTME: Stub specialized travel agent serving the inter-service protocol
// ABOUTME: Usage: trip-agent -role itinerary|weather|restaurant|budget [-addr :9101]

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/a2a"
	"github.com/wuzhiguocarter/ag-ui-a2a-demo/internal/registry"
)

func main() {
	role := flag.String("role", "", "Agent role: itinerary, weather, restaurant, or budget")
	addr := flag.String("addr", ":9101", "HTTP listen address")
	name := flag.String("name", "", "Agent name (defaults to <role>-agent)")
	fixturePath := flag.String("fixtures", "", "Optional TOML file with canned response payloads")
	flag.Parse()

	if !validRole(*role) {
		fmt.Fprintln(os.Stderr, "Error: -role must be one of itinerary, weather, restaurant, budget")
		os.Exit(1)
	}
	if *name == "" {
		*name = *role + "-agent"
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("agent", *name)

	var fixtures *Fixtures
	if *fixturePath != "" {
		var err error
		fixtures, err = LoadFixtures(*fixturePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: loading fixtures: %v\n", err)
			os.Exit(1)
		}
		logger.Info("loaded fixtures", "path", *fixturePath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *role, *name, *addr, fixtures, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func validRole(role string) bool {
	switch role {
	case "itinerary", "weather", "restaurant", "budget":
		return true
	}
	return false
}

func run(ctx context.Context, role, name, addr string, fixtures *Fixtures, logger *slog.Logger) error {
	agent := &stubAgent{
		role:     role,
		name:     name,
		fixtures: fixtures,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+a2a.InvokePath, agent.handleInvoke)
	mux.HandleFunc("GET "+a2a.CardPath, agent.handleCard)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agent listening", "addr", addr, "role", role)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// stubAgent answers task requests with deterministic canned payloads.
type stubAgent struct {
	role     string
	name     string
	fixtures *Fixtures
	logger   *slog.Logger
}

func (a *stubAgent) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req a2a.TaskRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		a.respond(w, a2a.TaskResponse{
			Success:   false,
			Error:     "invalid request envelope",
			Agent:     a.name,
			Timestamp: time.Now(),
		})
		return
	}

	a.logger.Info("task received", "request_id", req.ID, "task", req.Task)

	data, err := a.payload(req.Parameters)
	if err != nil {
		a.respond(w, a2a.TaskResponse{
			Success:   false,
			Error:     err.Error(),
			Agent:     a.name,
			Timestamp: time.Now(),
		})
		return
	}

	a.respond(w, a2a.TaskResponse{
		Success:   true,
		Data:      data,
		Agent:     a.name,
		Timestamp: time.Now(),
	})
}

// payload prefers a fixture override, falling back to the built-in generator.
func (a *stubAgent) payload(params map[string]any) (json.RawMessage, error) {
	if a.fixtures != nil {
		if raw, ok := a.fixtures.Response(a.role); ok {
			return raw, nil
		}
	}
	return builtinPayload(a.role, params)
}

func (a *stubAgent) handleCard(w http.ResponseWriter, r *http.Request) {
	card := registry.Card{
		Name:        a.name,
		Description: roleDescription(a.role),
		Parameters:  roleParameters(a.role),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(card)
}

func (a *stubAgent) respond(w http.ResponseWriter, resp a2a.TaskResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Error("writing response", "error", err)
	}
}

func roleDescription(role string) string {
	switch role {
	case "itinerary":
		return "Builds day-by-day sightseeing itineraries for a destination"
	case "weather":
		return "Forecasts travel weather and packing advice"
	case "restaurant":
		return "Recommends breakfast, lunch, and dinner for each trip day"
	case "budget":
		return "Estimates trip costs with a category breakdown"
	}
	return ""
}

func roleParameters(role string) map[string]string {
	params := map[string]string{
		"destination": "string, city or region to plan for",
		"days":        "int, trip length in days",
	}
	if role == "budget" {
		params["partySize"] = "int, number of travelers"
		params["budgetTier"] = "string, Economy, Comfort, or Premium"
	}
	return params
}
