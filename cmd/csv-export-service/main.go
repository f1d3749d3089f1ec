package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gin-gonic/gin"

	"github.com/yourorg/csvkit/pkg/blobclient"
	"github.com/yourorg/csvkit/pkg/config"
	"github.com/yourorg/csvkit/pkg/csvwriter"
	"github.com/yourorg/csvkit/pkg/db"
	"github.com/yourorg/csvkit/pkg/export"
	"github.com/yourorg/csvkit/pkg/httpservice"
	"github.com/yourorg/csvkit/pkg/jwt"
	"github.com/yourorg/csvkit/pkg/logging"
	"github.com/yourorg/csvkit/pkg/servicebusclient"
	"github.com/yourorg/csvkit/pkg/telemetry"
	"github.com/yourorg/csvkit/pkg/utils"
)

type cli struct {
	ConfigFile string

	Query     string
	QueryName string

	TokenClient string
}

func main() {
	c := &cli{}
	app := kingpin.New("csv-export-service", "Renders CSV documents and stores them in blob storage.")
	app.Flag("config", "JSON or YAML config file; environment variables take precedence").
		Short('c').
		Envar("CONFIG_FILE").
		StringVar(&c.ConfigFile)

	serveCmd := app.Command("serve", "Run the HTTP API").Default()

	queryCmd := app.Command("query", "Export the result of a SQL query to a CSV file in the export directory")
	queryCmd.Arg("sql", "Query to run").Required().StringVar(&c.Query)
	queryCmd.Flag("name", "Output file name without extension").
		Short('n').
		Default("query").
		StringVar(&c.QueryName)

	tokenCmd := app.Command("token", "Print a bearer token for the API")
	tokenCmd.Arg("client", "Client id to embed in the token").Required().StringVar(&c.TokenClient)

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(c.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	switch command {
	case serveCmd.FullCommand():
		err = serve(cfg, logger)
	case queryCmd.FullCommand():
		err = runQuery(cfg, logger, c.Query, c.QueryName)
	case tokenCmd.FullCommand():
		err = printToken(cfg, logger, c.TokenClient)
	}
	if err != nil {
		logger.Error("Command failed", logging.NewField("command", command), logging.NewField("error", err))
		logging.Sync(logger)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadConfigFromEnv()
	}
	return config.LoadConfigFromFile(path)
}

func serve(cfg *config.Config, logger logging.Logger) error {
	logger.Info("Starting csv export service",
		logging.NewField("version", cfg.AppVersion),
		logging.NewField("environment", cfg.Environment),
	)

	var blobClient blobclient.BlobClient
	if cfg.BlobStorageAccountName == "" {
		logger.Info("Using mock blob client (no account name configured)")
		blobClient = blobclient.NewMockBlobClient()
	} else {
		client, err := blobclient.NewAzureBlobClient(cfg.BlobStorageAccountName, cfg.BlobStorageAccountKey, logger)
		if err != nil {
			return fmt.Errorf("failed to create blob client: %w", err)
		}
		blobClient = client
	}

	var busClient servicebusclient.ServiceBusClient
	if cfg.ServiceBusNamespace == "" {
		logger.Info("Using mock Service Bus client (no namespace configured)")
		busClient = servicebusclient.NewMockServiceBusClient()
	} else {
		client, err := servicebusclient.NewAzureServiceBusClient(cfg.ServiceBusNamespace, cfg.ServiceBusKeyName, cfg.ServiceBusKeyValue, logger)
		if err != nil {
			return fmt.Errorf("failed to create Service Bus client: %w", err)
		}
		busClient = client
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := busClient.Close(ctx); err != nil {
			logger.Warn("Failed to close Service Bus client", logging.NewField("error", err))
		}
	}()

	exporter, err := export.NewExporter(blobClient, busClient, export.Config{
		Container: cfg.BlobContainer,
		Queue:     cfg.ServiceBusQueue,
		Defaults:  cfg.CSVOptions(),
		Retry:     retryConfig(cfg),
	}, logger)
	if err != nil {
		return err
	}

	var auth []gin.HandlerFunc
	if cfg.JWTSecret != "" {
		tokens, err := jwt.NewJWTService(cfg.JWTSecret, 0, logger)
		if err != nil {
			return err
		}
		auth = append(auth, jwt.JWTMiddleware(tokens, logger))
	} else {
		logger.Warn("JWT_SECRET not set; the CSV API is unauthenticated")
	}

	nr, err := telemetry.NewNewRelicClient(telemetry.NewRelicConfig{
		LicenseKey: cfg.NewRelicLicenseKey,
		AppName:    cfg.AppName,
		Enabled:    cfg.NewRelicEnabled,
	}, logger)
	if err != nil {
		return err
	}
	defer nr.Shutdown(10 * time.Second)

	gin.SetMode(gin.ReleaseMode)
	server, err := httpservice.NewServer(httpservice.ServerConfig{
		Port:           cfg.HTTPPort,
		ReadTimeout:    time.Duration(cfg.HTTPReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.HTTPWriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.HTTPIdleTimeout) * time.Second,
		Logger:         logger,
		ServiceName:    cfg.AppName,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxBodySize:    cfg.MaxBodySize,
		Middleware:     []gin.HandlerFunc{nr.Middleware()},
	}, httpservice.NewExportHandler(exporter, auth...))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func runQuery(cfg *config.Config, logger logging.Logger, query, name string) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for query exports")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(cfg.ExportDir, filepath.Base(name)+".csv")

	w, err := csvwriter.New(csvwriter.FileSink(path),
		csvwriter.WithOptions(cfg.CSVOptions()),
		csvwriter.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	rows, err := db.ExportQuery(ctx, database, w, true, query)
	if err != nil {
		_, _ = w.Close()
		return err
	}
	res, err := w.Close()
	if err != nil {
		return err
	}

	logger.Info("Query exported",
		logging.NewField("path", path),
		logging.NewField("rows", rows),
		logging.NewField("bytes", res.BytesWritten()),
	)
	return nil
}

func printToken(cfg *config.Config, logger logging.Logger, clientID string) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required to issue tokens")
	}
	tokens, err := jwt.NewJWTService(cfg.JWTSecret, 24*time.Hour, logger)
	if err != nil {
		return err
	}
	token, err := tokens.GenerateToken(clientID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func retryConfig(cfg *config.Config) utils.RetryConfig {
	rc := utils.DefaultRetryConfig()
	rc.MaxAttempts = cfg.RetryMaxAttempts
	rc.InitialDelay = time.Duration(cfg.RetryInitialDelay) * time.Millisecond
	rc.MaxDelay = time.Duration(cfg.RetryMaxDelay) * time.Millisecond
	return rc
}
