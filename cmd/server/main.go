package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"sms-ingress-server/internal/config"
	"sms-ingress-server/internal/models"
	"sms-ingress-server/pkg/logger"
	"sms-ingress-server/pkg/middleware"

	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "absolute path to a JSON config file, layered under .env and environment variables")
	envFile := flag.String("env-file", ".env", "dotenv file to load")
	issueToken := flag.String("issue-token", "", "path to a JSON client routing config; prints a signed bearer token and exits")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := writeToken(os.Stdout, *issueToken, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// Initialize logger
	if err := logger.Init(logger.Options{
		Level:   cfg.Logging.Level,
		Path:    cfg.Logging.Path,
		Console: cfg.Logging.Console,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	defer logger.Info("Server shutting down")

	// Setup and start server
	srv, err := SetupServer(cfg)
	if err != nil {
		logger.Fatal("Failed to setup server", zap.Error(err))
	}

	if err := StartServer(srv); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func loadConfig(path, envFile string) (*config.Config, error) {
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// writeToken signs the routing config read from path and writes the token to w
func writeToken(w io.Writer, path string, cfg *config.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read client config: %w", err)
	}

	var smsc models.SmscConfig
	if err := json.Unmarshal(data, &smsc); err != nil {
		return fmt.Errorf("failed to parse client config: %w", err)
	}

	token, err := middleware.GenerateToken(smsc, cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
