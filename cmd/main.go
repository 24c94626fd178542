package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niklvrr/ReviewRoom/internal/config"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/db"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/googlechat"
	"github.com/niklvrr/ReviewRoom/internal/infrastructure/repository"
	"github.com/niklvrr/ReviewRoom/internal/notification"
	"github.com/niklvrr/ReviewRoom/internal/transport"
	"github.com/niklvrr/ReviewRoom/internal/transport/handler"
	"github.com/niklvrr/ReviewRoom/internal/usecase/service"
	"github.com/niklvrr/ReviewRoom/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reviewroom",
		Short:        "Review rooms with Google Chat notifications",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			return db.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath, log)
		},
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.App.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func serve(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	// Инициализация бд
	pool, err := db.NewDatabase(ctx, cfg.Database.URL, cfg.Database.MigrationsPath, log)
	if err != nil {
		log.Error("database init failed", zap.Error(err))
		return err
	}
	defer pool.Close()

	// Клиенты Google Chat
	chatHTTP := &http.Client{Timeout: cfg.Chat.NotifyTimeout}
	sender := googlechat.NewWebhookSender(chatHTTP, log)
	members := googlechat.NewMembersClient(chatHTTP, cfg.Chat.APIEndpoint, log)

	// Уведомления
	resolver := notification.NewResolver(members, notification.NewTTLCache(cfg.Chat.MemberCacheTTL), log)
	formatter := notification.NewFormatter(resolver, time.Now)
	notifier := notification.NewNotifier(formatter, sender, cfg.Chat.NotifyTimeout, log)

	// Слои
	roomRepo := repository.NewRoomRepository(pool, log)
	reviewRepo := repository.NewReviewRepository(pool, log)

	roomService := service.NewRoomService(roomRepo, log)
	reviewService := service.NewReviewService(reviewRepo, roomRepo, notifier, log)
	chatService := service.NewChatService(sender, members, log)

	router := transport.NewRouter(transport.Handlers{
		Room:   handler.NewRoomHandler(roomService, log),
		Review: handler.NewReviewHandler(reviewService, log),
		Chat:   handler.NewChatHandler(chatService, log),
		Stats:  handler.NewStatsHandler(reviewService, log),
		Health: handler.NewHealthHandler(pool, log),
	}, cfg.App.RequestTimeout, log)

	server := transport.NewServer(cfg.App.Port, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}

		// Дожидаемся уведомлений, отправленных до остановки
		notifier.Wait()
		log.Info("pending notifications flushed")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}
