package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/domainimport/domainimport/internal/api"
	"github.com/domainimport/domainimport/internal/auth"
	"github.com/domainimport/domainimport/internal/config"
	"github.com/domainimport/domainimport/internal/importer"
	"github.com/domainimport/domainimport/internal/logging"
	"github.com/domainimport/domainimport/internal/staging"
	"github.com/domainimport/domainimport/internal/store"
	"github.com/domainimport/domainimport/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload and progress HTTP API",
	Long: `Run the HTTP API.

Configuration is read from DOMAINIMPORT_* environment variables. Values in the
--env-file (default .env) override the process environment when the file exists.

Routes:
  POST /upload        multipart upload, returns a task id
  GET  /task/{id}     task progress
  GET  /task/{id}/sse progress as server-sent events
  GET  /tasks         all tasks, newest first
  GET  /health        liveness, no auth`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveEnvFile         string
	serveShutdownTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "dotenv file to load before reading config")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 30*time.Second, "time allowed for in-flight imports on shutdown")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(serveEnvFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx := cmd.Context()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	stager, err := newStager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("staging: %w", err)
	}

	notifier := webhook.New(logger)
	svc := importer.New(st, stager, importer.Options{
		DefaultTitle: cfg.DefaultTitle,
		Notifier:     notifier,
		Logger:       logger,
	})

	h := api.NewHandler(svc, newAuth(cfg), api.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		UploadRateLimit: cfg.UploadRateLimit,
		CORSOrigins:     cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("domainimport listening", "addr", cfg.ListenAddr, "staging", cfg.Staging)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			svc.Stop()
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		logger.Warn("imports still running at shutdown, interrupting", "error", err)
	}
	svc.Stop()

	// Callbacks for jobs finished during shutdown get their own budget.
	hookCtx, hookCancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer hookCancel()
	if err := notifier.Shutdown(hookCtx); err != nil {
		logger.Warn("webhook deliveries cancelled at shutdown", "error", err)
	}
	return nil
}

// loadEnvFile applies path over the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	slog.Debug("loaded env file", "path", path)
	return nil
}

func newStager(ctx context.Context, cfg *config.Config) (staging.Stager, error) {
	switch cfg.Staging {
	case config.StagingS3:
		return staging.NewS3(ctx, staging.S3Config{
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			ForcePathStyle: cfg.S3.PathStyle,

			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return staging.NewDisk(cfg.UploadDir)
	}
}

// newAuth accepts API keys, HS256 tokens, or both, depending on what is configured.
func newAuth(cfg *config.Config) auth.Service {
	var chain auth.Any
	if len(cfg.APIKeys) > 0 {
		chain = append(chain, auth.NewStaticKeys(cfg.APIKeys))
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, auth.NewJWT(cfg.JWTSecret))
	}
	if len(chain) == 1 {
		return chain[0]
	}
	return chain
}
