// Command authflow-server runs the login flow endpoints behind gin with a
// protected /api/me route and a Prometheus /metrics endpoint.
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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lukaszraczylo/authflow"
	"github.com/lukaszraczylo/authflow/bindings/ginauth"
	"github.com/lukaszraczylo/authflow/config"
	"github.com/lukaszraczylo/authflow/internal/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to authflow.yaml (defaults to the standard search paths)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "authflow-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithPaths(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	client, err := authflow.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	return serve(ctx, cfg.Server, newRouter(client, cfg.Server), client.Logger("server"))
}

func newRouter(client *authflow.Client, cfg config.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.HandleMethodNotAllowed = true

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	ginauth.Mount(router, client.AuthHandler())

	api := router.Group("/api", ginauth.VerifyAccessToken(client.Issuer(), client.MiddlewareOptions()))
	api.GET("/me", func(c *gin.Context) {
		claims, _ := ginauth.Claims(c)
		c.JSON(http.StatusOK, claims)
	})

	return router
}

func serve(ctx context.Context, cfg config.ServerConfig, handler http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("Shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
