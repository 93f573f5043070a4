package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-dedup/internal/cache"
	"github.com/sells-group/lead-dedup/internal/config"
	"github.com/sells-group/lead-dedup/internal/fetcher"
	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/pipeline"
	"github.com/sells-group/lead-dedup/internal/quality"
	"github.com/sells-group/lead-dedup/internal/validation"
)

const shutdownTimeout = 15 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for dedup and validation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initPipeline(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(env.Pipeline, env.Verdicts, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		stats := env.Verdicts.Stats()
		zap.L().Info("server stopped",
			zap.Int64("cache_hits", stats.Hits),
			zap.Int64("cache_misses", stats.Misses),
		)
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// recordsRequest is the body of the record endpoints.
type recordsRequest struct {
	Records  []model.Record `json:"records"`
	MinScore *int           `json:"min_score,omitempty"`
}

// recordsResponse carries the kept records with run statistics.
type recordsResponse struct {
	RunID         string         `json:"run_id,omitempty"`
	Records       []model.Record `json:"records"`
	Stats         model.Stats    `json:"stats"`
	Report        quality.Report `json:"report"`
	FailedBatches int            `json:"failed_batches,omitempty"`
}

// newRouter builds the API routes over p. verdicts is the cache p
// validates through; it backs the /v1/cache routes and may be nil.
func newRouter(p *pipeline.Pipeline, verdicts *cache.Cache[validation.Verdict], sc config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	maxBody := int64(sc.MaxBodyMB) << 20
	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(sc.RateLimit), sc.RateBurst)))

		r.Post("/dedup", recordsHandler(p, maxBody, func(ctx context.Context, p *pipeline.Pipeline, recs []model.Record) (*pipeline.Output, error) {
			return p.Run(ctx, "api:dedup", recs)
		}))
		r.Post("/validate", recordsHandler(p, maxBody, func(ctx context.Context, p *pipeline.Pipeline, recs []model.Record) (*pipeline.Output, error) {
			return p.Validate(ctx, "api:validate", recs)
		}))

		r.Get("/cache", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, verdicts.Stats())
		})
		r.Delete("/cache", func(w http.ResponseWriter, r *http.Request) {
			purged := verdicts.Len()
			verdicts.Purge()
			zap.L().Info("api: verdict cache purged",
				zap.Int("entries", purged),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
			writeJSON(w, http.StatusOK, map[string]int{"purged": purged})
		})
	})

	return r
}

// rateLimit rejects requests beyond the token bucket with 429.
func rateLimit(lim *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type engineFunc func(ctx context.Context, p *pipeline.Pipeline, recs []model.Record) (*pipeline.Output, error)

func recordsHandler(p *pipeline.Pipeline, maxBody int64, fn engineFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxBody > 0 {
			if r.ContentLength > maxBody {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		req, err := fetcher.DecodeJSONObject[recordsRequest](r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Records == nil {
			writeError(w, http.StatusBadRequest, "records is required")
			return
		}

		engine := p
		if req.MinScore != nil {
			if *req.MinScore < 0 || *req.MinScore > 100 {
				writeError(w, http.StatusBadRequest, "min_score must be between 0 and 100")
				return
			}
			engine = p.WithMinQualityScore(*req.MinScore)
		}

		out, err := fn(r.Context(), engine, req.Records)
		if err != nil {
			zap.L().Error("api: request failed",
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "processing failed")
			return
		}

		recs := out.Records()
		if recs == nil {
			recs = []model.Record{}
		}
		writeJSON(w, http.StatusOK, recordsResponse{
			RunID:         out.RunID,
			Records:       recs,
			Stats:         out.Stats,
			Report:        out.Report,
			FailedBatches: len(out.Failures),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
