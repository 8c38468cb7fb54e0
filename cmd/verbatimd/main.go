package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"verbatim/internal/daemon"
	"verbatim/internal/db"
	"verbatim/internal/platform/config"
	"verbatim/internal/platform/logger"
	"verbatim/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	socketPath := config.GetEnv("VERBATIM_SOCKET", daemon.SocketPath())
	dbPath := config.GetEnv("VERBATIM_DB", db.DefaultDBPath())
	httpAddr := config.GetEnv("VERBATIM_HTTP_ADDR", "127.0.0.1:8573")
	queueSize := config.GetEnvInt("VERBATIM_QUEUE_SIZE", 256)
	minFlushRunes := config.GetEnvInt("VERBATIM_MIN_FLUSH_RUNES", 3)
	idleAfterMs := config.GetEnvInt("VERBATIM_IDLE_AFTER_MS", 5000)
	locale := config.GetEnv("VERBATIM_LOCALE", "en-US")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	database, err := db.Open(dbPath)
	if err != nil {
		log.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer database.Close()

	met := metrics.New()
	srv := daemon.NewServer(database, log, met, daemon.ServerConfig{
		QueueSize:     queueSize,
		MinFlushRunes: minFlushRunes,
		IdleAfter:     time.Duration(idleAfterMs) * time.Millisecond,
		DefaultLocale: locale,
	})

	ln, err := daemon.Listen(socketPath)
	if err != nil {
		log.Error("listen", "socket", socketPath, "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Serve(ln); err != nil {
			log.Error("socket server error", "error", err)
			os.Exit(1)
		}
	}()

	h := daemon.NewHandler(srv, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(srv.UpdateGauges).ServeHTTP(w, req)
	})
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Get("/{session_id}", h.GetSession)
		r.Get("/{session_id}/export", h.ExportSession)
	})

	httpSrv := &http.Server{Addr: httpAddr, Handler: r}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("verbatimd starting",
		"socket", socketPath,
		"http_addr", httpAddr,
		"db", dbPath,
		"queue_size", queueSize,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, finishing session")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srv.Close()
	ln.Close()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("verbatimd stopped")
}
