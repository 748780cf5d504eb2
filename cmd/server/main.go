package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/p-n-ai/mathboard/internal/ai"
	"github.com/p-n-ai/mathboard/internal/api"
	"github.com/p-n-ai/mathboard/internal/catalog"
	"github.com/p-n-ai/mathboard/internal/classroom"
	"github.com/p-n-ai/mathboard/internal/grading"
	"github.com/p-n-ai/mathboard/internal/platform/cache"
	"github.com/p-n-ai/mathboard/internal/platform/config"
	"github.com/p-n-ai/mathboard/internal/platform/database"
	"github.com/p-n-ai/mathboard/internal/progress"
	"github.com/p-n-ai/mathboard/internal/realtime"
	"github.com/p-n-ai/mathboard/internal/revision"
)

const regradeTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from config. Unknown levels fall back to info.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		classroomStore classroom.Store    = classroom.NewMemoryStore()
		rubricStore    revision.Store     = revision.NewMemoryStore()
		gradeStore     grading.GradeStore = grading.NewMemoryGradeStore()
		checks         []readinessCheck
	)

	if cfg.Store.Driver == config.StorePostgres {
		db, err := database.New(ctx, cfg.Database.URL,
			database.WithMaxConns(cfg.Database.MaxConns),
			database.WithMinConns(cfg.Database.MinConns),
		)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}

		pgClassroom, err := classroom.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		pgRubrics, err := revision.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		pgGrades, err := grading.NewPostgresGradeStore(db.Pool)
		if err != nil {
			return err
		}
		classroomStore, rubricStore, gradeStore = pgClassroom, pgRubrics, pgGrades
		checks = append(checks, readinessCheck{name: "database", check: db})
		slog.Info("using postgres store")
	}

	var redisCache *cache.Cache
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return err
		}
		defer c.Close()
		redisCache = c
		rubricStore = revision.NewCachedStore(rubricStore, c, cfg.Cache.TTL())
		checks = append(checks, readinessCheck{name: "cache", check: c})
	}

	router := newAIRouter(cfg.AI)
	grader := grading.NewGrader(router, classroomStore, rubricStore, gradeStore, "")
	hub := realtime.NewHub()
	publishers := revision.Publishers{hub}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	if cfg.Regrade.Enabled {
		regrader := grading.NewRegrader(grader, classroomStore, rubricStore)
		if redisCache != nil {
			publishers = append(publishers, revision.NewStreamPublisher(redisCache.Client, cfg.Regrade.Stream))
			consumer := revision.NewStreamConsumer(redisCache.Client, cfg.Regrade.Stream, cfg.Regrade.Group, consumerName())
			workers.Go(func() {
				if err := consumer.Run(workerCtx, regrader.HandleChange); err != nil {
					slog.Error("change stream consumer stopped", "error", err)
				}
			})
		} else {
			dispatcher := revision.NewLocalDispatcher(regrader.HandleChange, regradeTimeout)
			publishers = append(publishers, dispatcher)
			defer dispatcher.Wait()
		}
	}
	// The stream consumer stops before the cache client closes.
	defer workers.Wait()
	defer stopWorkers()

	rubrics := revision.NewService(revision.ServiceConfig{
		Store:       rubricStore,
		Publisher:   publishers,
		MaxAttempts: cfg.Revision.MaxAttempts,
	})

	var templates *catalog.Loader
	if cfg.TemplatesPath != "" {
		loader, err := catalog.NewLoader(cfg.TemplatesPath)
		if err != nil {
			return err
		}
		templates = loader
		slog.Info("assignment templates loaded", "path", cfg.TemplatesPath, "count", len(loader.All()))
	}

	mux := newMux(checks...)
	api.New(api.Deps{
		Classroom: classroomStore,
		Rubrics:   rubrics,
		Generator: grading.NewGenerator(router, rubrics, ""),
		Grader:    grader,
		Progress:  progress.NewService(classroomStore, gradeStore),
		Templates: templates,
		Hub:       hub,
	}).Register(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // grading waits on the model
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver, "regrade", cfg.Regrade.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Websocket feeds are hijacked and not tracked by Shutdown; they end with their clients.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newAIRouter registers OpenRouter first and OpenAI as the fallback.
func newAIRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter()
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey,
			ai.WithDefaultModel(cfg.OpenRouter.Model),
		))
	}
	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey,
			ai.WithDefaultModel(cfg.OpenAI.Model),
		))
	}
	return router
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "mathboard"
	}
	return fmt.Sprintf("%s-%d", strings.ToLower(host), os.Getpid())
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type readinessCheck struct {
	name  string
	check healthChecker
}

// newMux creates the HTTP router with health check endpoints.
func newMux(checks ...readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks []readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for _, c := range checks {
			if err := c.check.HealthCheck(ctx); err != nil {
				slog.Warn("readiness check failed", "check", c.name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","check":%q}`, c.name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
