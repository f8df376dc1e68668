package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harun/warden/internal/config"
	"github.com/harun/warden/internal/logger"
	"github.com/harun/warden/internal/metrics"
	"github.com/harun/warden/internal/observability"
	"github.com/harun/warden/internal/tracing"
	"github.com/harun/warden/pkg/session"
)

const shutdownTimeout = 5 * time.Second

// services are the process-wide collaborators of one invocation. Every field
// but logger may be nil.
type services struct {
	logger      *logger.Logger
	metrics     *metrics.Metrics
	metricsFile string
	audit       *observability.AuditLogger
	store       *session.Store
}

// startServices sets up logging, tracing, metrics and the audit trail.
func startServices(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*services, error) {
	l, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Patterns:  cfg.Logging.RedactionPatterns,
		Out:       cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	svc := &services{
		logger:      l,
		metrics:     metrics.NewMetrics(),
		metricsFile: cfg.Metrics.Textfile,
	}

	if err := tracing.InitOpenTelemetry(ctx, "warden", version, cfg.Tracing); err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	if cfg.Audit.File != "" {
		audit, err := observability.OpenAuditLogger(cfg.Audit.File)
		if err != nil {
			svc.close(ctx)
			return nil, err
		}
		svc.audit = audit
	}

	return svc, nil
}

// close flushes metrics and spans and releases files. Failures are logged.
func (s *services) close(ctx context.Context) {
	if s.metricsFile != "" && s.metrics != nil {
		if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
			log.Warn().Err(err).Str("path", s.metricsFile).Msg("Failed to write metrics textfile")
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close transcript store")
		}
	}

	if err := s.audit.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close audit log")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush spans")
	}

	if s.logger != nil {
		_ = s.logger.Close()
	}
}
