// Package main runs the live token screener: a bulk-fetched, push-updated
// in-memory view of tradable tokens with a JSON query surface for renderers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"solana-token-screener/internal/engine"
	"solana-token-screener/internal/fetch"
	"solana-token-screener/internal/observability"
	"solana-token-screener/internal/query"
	"solana-token-screener/internal/reconcile"
	"solana-token-screener/internal/solana"
	"solana-token-screener/internal/storage/memory"
	"solana-token-screener/internal/stream"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	apiEndpoint := flag.String("api-endpoint", os.Getenv("SCREENER_API_ENDPOINT"), "Bulk token-list HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SCREENER_WS_ENDPOINT"), "Push channel WebSocket endpoint")
	httpAddr := flag.String("http-addr", ":8080", "HTTP address for view/stats/metrics endpoints")
	refreshInterval := flag.Duration("refresh-interval", 30*time.Second, "Bulk refresh interval")
	sortBy := flag.String("sort-by", "volumeSol", "Initial server-side sort key")
	order := flag.String("order", "desc", "Initial sort order (asc|desc)")
	period := flag.String("period", "24h", "Initial stats period")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[screener] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *apiEndpoint == "" {
		logger.Fatal("--api-endpoint is required")
	}
	if *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}

	metrics := observability.NewMetrics("")

	store := memory.NewTokenStore()
	reconciler := reconcile.NewReconciler(reconcile.Options{
		Store:           store,
		Logger:          logger,
		ValidateAddress: solana.ValidAddress,
	})

	eng := engine.New(engine.Options{
		Store:           store,
		Reconciler:      reconciler,
		Fetcher:         fetch.NewClient(*apiEndpoint),
		Logger:          logger,
		Metrics:         metrics,
		RefreshInterval: *refreshInterval,
		SortBy:          *sortBy,
		Order:           *order,
		Period:          *period,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.Start(ctx)
	defer eng.Stop()

	// Connect the push channel and route its events into the engine.
	wsClient, err := stream.NewClient(ctx, *wsEndpoint, nil)
	if err != nil {
		logger.Fatalf("connect push channel: %v", err)
	}
	defer wsClient.Close()

	router := stream.NewRouter(eng.Intake, logger)
	go router.Run(wsClient.Messages())

	go serveHTTP(*httpAddr, eng, router, logger)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)
	cancel()
}

// serveHTTP exposes the projection, summary stats, router stats, health and
// Prometheus metrics.
func serveHTTP(addr string, eng *engine.Engine, router *stream.Router, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/tokens", func(w http.ResponseWriter, r *http.Request) {
		if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
			eng.SetPage(page)
		}

		var view query.Projection
		if key := r.URL.Query().Get("sortKey"); key != "" {
			ord := query.OrderDesc
			if r.URL.Query().Get("order") == string(query.OrderAsc) {
				ord = query.OrderAsc
			}
			view = eng.SortedView(query.SortKey(key), ord)
		} else {
			view = eng.View()
		}

		writeJSON(w, map[string]interface{}{
			"tokens":     view.Items,
			"page":       view.Page,
			"totalPages": view.TotalPages,
		}, logger)
	})

	// Changing the server-side sort triggers a fresh fetch and resets the
	// page to 1; paging via /tokens only re-slices the held snapshot.
	mux.HandleFunc("/sort", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		eng.SetSort(q.Get("sortBy"), q.Get("order"), q.Get("period"))
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		s := eng.Stats()
		writeJSON(w, map[string]interface{}{
			"tokenCount":     s.TokenCount,
			"totalVolumeSol": s.TotalVolumeSol,
			"updateCount":    s.UpdateCount,
			"router":         router.Stats(),
		}, logger)
	})

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf("write response: %v", err)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
