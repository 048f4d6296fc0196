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

	"sms-ingress-server/internal/config"
	"sms-ingress-server/internal/db"
	"sms-ingress-server/internal/queue"
	"sms-ingress-server/internal/services"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/mailer"
	"sms-ingress-server/pkg/utils"
	"sms-ingress-server/router"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP server together with the store and broker clients it owns
type Server struct {
	*http.Server
	database *db.Database
	queue    *queue.RedisQueue
}

// SetupServer initializes and returns a configured HTTP server
func SetupServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if cfg.Server.Port <= 0 {
		return nil, errors.New("invalid server port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize database
	database, err := db.NewDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// The redis client connects lazily, an unreachable broker only shows up on submit
	client, err := queue.NewRedisClient(cfg.Redis.URL, cfg.Redis.DialTimeout)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize redis client: %w", err)
	}
	jobQueue := queue.NewRedisQueue(client, cfg.Queue.Name, cfg.Queue.Prefix)

	var otpMailer mailer.OTPMailer
	if cfg.SMTP.Host != "" {
		otpMailer = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	// Initialize services
	otpService := services.NewOTPService(
		db.NewOTPRepository(database),
		utils.NewSecretHasher(cfg.OTP.HashCost),
		cfg.OTP.TTL,
	)
	queueService := services.NewQueueService(jobQueue, cfg.Queue.AddTimeout)
	messagingService := services.NewMessagingService(
		services.NewSegmenter(cfg.SMS.MaxSegments),
		queueService,
		otpService,
		otpMailer,
	)

	handler, err := router.NewRouter(router.Dependencies{
		Config:    cfg,
		Messaging: messagingService,
		Checks: map[string]router.Pinger{
			"database": database,
			"redis":    jobQueue,
		},
		Version: version,
	})
	if err != nil {
		jobQueue.Close()
		database.Close()
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	// Create server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{Server: srv, database: database, queue: jobQueue}, nil
}

// Release closes the store and broker clients
func (s *Server) Release() error {
	return errors.Join(s.queue.Close(), s.database.Close())
}

// StartServer starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM
func StartServer(srv *Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return StartServerWithContext(ctx, srv)
}

// StartServerWithContext starts the HTTP server with a context for shutdown control
func StartServerWithContext(ctx context.Context, srv *Server) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			srv.Release()
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	shutdownErr := srv.Shutdown(ctxShutdown)
	if err := srv.Release(); err != nil {
		logger.Warn("Failed to release resources", zap.Error(err))
	}
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown failed: %w", shutdownErr)
	}

	return nil
}
