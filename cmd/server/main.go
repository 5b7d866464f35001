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

	"github.com/vidyaverse/core/internal/app"
	"github.com/vidyaverse/core/internal/config"
	"github.com/vidyaverse/core/internal/pkg/cluster"
	"github.com/vidyaverse/core/internal/pkg/nativelog"
	"github.com/vidyaverse/core/internal/pkg/proctitle"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	logger, err := nativelog.NewZapLogger()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	if cluster.IsWorker() {
		_ = proctitle.Set(fmt.Sprintf("vidyaverse: worker %d", cluster.WorkerID()))
	} else {
		_ = proctitle.Set("vidyaverse")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	opts := cluster.Options{
		Enable:     cfg.Cluster,
		Workers:    cfg.ClusterWorkers,
		ListenAddr: fmt.Sprintf(":%d", cfg.Port),
	}
	if err := cluster.Run(logger, opts, func() error { return serve(logger, cfg) }); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func serve(logger *zap.Logger, cfg *config.AppConfig) error {
	application, err := app.New(logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	// Clustered unix workers share the port via SO_REUSEPORT; a worker given
	// its own address (windows master proxy) listens plainly on it.
	addr := application.Addr()
	reusePort := cfg.Cluster
	if workerAddr := cluster.WorkerListenAddr(); workerAddr != "" {
		addr = workerAddr
		reusePort = false
	}
	ln, err := cluster.ListenTCP(addr, reusePort)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{Handler: application.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server...")
	application.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
