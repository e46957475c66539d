package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kinnrichard/image-uploader/api/core"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/internal/app"
	"github.com/kinnrichard/image-uploader/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()
	utils.InitLogger(cfg.LogLevel)

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	log.Info().
		Str("database", container.GetDatabaseProvider().Name()).
		Str("storage", container.GetStorage().Name()).
		Str("session_store", cfg.SessionStore).
		Msg("Application initialized")

	deps := &core.RouterDependencies{
		Config:        cfg,
		Database:      container.GetDatabaseProvider(),
		Sessions:      container.GetSessions(),
		Storage:       container.GetStorage(),
		AuthService:   container.GetAuthService(),
		UploadService: container.GetUploadService(),
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	utils.SafeGo("http-server", func() {
		log.Info().Str("addr", cfg.Addr()).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	})

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if cleanup != nil {
		cleanup()
	}

	// 关闭 DI 容器
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing container")
	}

	log.Info().Msg("Server exited successfully")
}
