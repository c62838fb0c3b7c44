package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	canvasHandler "github.com/quipper/poc/grader/internal/controller/http/canvas"
	gradesSqlite "github.com/quipper/poc/grader/internal/repositories/grades/sqlite"
	rosterSqlite "github.com/quipper/poc/grader/internal/repositories/roster/sqlite"
	"github.com/quipper/poc/grader/pkg/common/config"
	"github.com/quipper/poc/grader/pkg/common/keys"
	"github.com/quipper/poc/grader/pkg/common/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $GRADER_CONFIG when that file exists)")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed dev access token")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.OptionalPath(os.Getenv("GRADER_CONFIG"))
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Logging.Level)
	logger.Info("starting sandbox")

	kr, err := keys.Load()
	if err != nil {
		logger.Error("init keys: %v", err)
		os.Exit(1)
	}
	if kr.Generated {
		// so the operator can capture and persist the key
		logger.Warn("generated ephemeral RSA key (dev mode); to persist, set PLATFORM_PRIVATE_KEY_PEM and PLATFORM_KID=%s", kr.Kid())
		logger.Debug("PLATFORM_PRIVATE_KEY_PEM:\n%s", string(kr.PEM()))
	}

	rosterRepo, err := rosterSqlite.NewSQLiteRepo(cfg.Sandbox.RosterDBPath)
	if err != nil {
		logger.Error("init roster repo: %v", err)
		os.Exit(1)
	}
	gradesRepo, err := gradesSqlite.NewSQLiteRepo(cfg.Sandbox.GradesDBPath)
	if err != nil {
		logger.Error("init grades repo: %v", err)
		os.Exit(1)
	}

	token, err := kr.Mint(cfg.Sandbox.Issuer, "sandbox-teacher", *tokenTTL)
	if err != nil {
		logger.Error("mint dev token: %v", err)
		os.Exit(1)
	}
	logger.Info("dev access token (valid %s): %s", *tokenTTL, token)

	h := canvasHandler.NewHandler(rosterRepo, gradesRepo, kr, cfg.Sandbox.Issuer, cfg.Sandbox.DefaultPageSize)
	router := chi.NewRouter()
	const maxBodySize = 2_100_000
	router.Use(middleware.RequestSize(maxBodySize))
	router.Use(middleware.Recoverer)
	router.Mount("/", h.Router())

	addr := ":" + cfg.Sandbox.Port
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("listening on %s (api root %s/api/v1)", addr, cfg.Sandbox.Issuer)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	rosterRepo.Disconnect()
	gradesRepo.Disconnect()
	logger.Info("sandbox stopped")
}
