package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"stackwarden/cmd/root"
	"stackwarden/controllers"
	"stackwarden/internal/config"
	"stackwarden/internal/logger"
	"stackwarden/internal/middleware"
	"stackwarden/internal/models"
	"stackwarden/services"
)

// shutdownDeadline bounds the whole stop sequence; stragglers are force
// terminated when it expires.
const shutdownDeadline = 60 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the supervisor daemon",
	Long:  "Start all configured services in dependency order and serve the management API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return err
	}
	logger.InitLogger(cfg.Log.Level, cfg.Log.Path)
	defer logger.Sync()

	sup, err := services.New(cfg.Services, services.Options{
		AlertWindow: cfg.Supervisor.AlertWindow,
	})
	if err != nil {
		// Configuration errors refuse to start, reported with the offending ids.
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Metrics())
	controllers.NewSupervisorController(sup).RegisterRoutes(router)
	controllers.NewAPIController(sup, root.SoftwareVer).RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.Server.Address, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()
	logger.Infof("management API listening on %s", cfg.Server.Address)

	if err := sup.Start(ctx); err != nil {
		var timeoutErr *models.StartupTimeoutError
		if errors.As(err, &timeoutErr) {
			// The already-started layers keep running so the partial stack
			// can be inspected; the daemon stays up.
			logger.Errorf("startup incomplete: %v", err)
		} else {
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Infof("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	sup.Stop(stopCtx)
	return srv.Shutdown(stopCtx)
}

func init() {
	root.RootCmd.AddCommand(serverCmd)
}
