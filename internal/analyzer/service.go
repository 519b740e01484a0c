package analyzer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Bahjat/link-audit/internal/model"
	"github.com/Bahjat/link-audit/internal/platform/errs"
	"github.com/Bahjat/link-audit/internal/platform/requestid"
)

// Service orchestrates an AuditProvider and logs results.
type Service struct {
	provider AuditProvider
	logger   *slog.Logger
}

// NewService creates a Service backed by the given provider.
func NewService(provider AuditProvider, logger *slog.Logger) *Service {
	return &Service{provider: provider, logger: logger}
}

// Extract delegates link extraction to the provider and logs the outcome.
func (s *Service) Extract(ctx context.Context, targetURL string) (*model.ExtractResult, error) {
	logger := s.logger.With("url", targetURL, "request_id", requestid.FromContext(ctx))

	result, err := s.provider.Extract(ctx, targetURL)
	if err != nil {
		return nil, s.fail(ctx, logger, "extraction failed", err)
	}

	logger.Info("extraction complete",
		"total_links", result.Summary.TotalLinks,
		"intro_links", result.Summary.ByRegion["intro"],
		"main_links", result.Summary.ByRegion["main"],
	)
	return result, nil
}

// Audit delegates the full audit to the provider and logs the outcome.
func (s *Service) Audit(ctx context.Context, targetURL string) (*model.AuditResult, error) {
	logger := s.logger.With("url", targetURL, "request_id", requestid.FromContext(ctx))

	result, err := s.provider.Audit(ctx, targetURL)
	if err != nil {
		return nil, s.fail(ctx, logger, "audit failed", err)
	}

	totals := result.Stats.Totals
	logger.Info("audit complete",
		"total_links", result.Stats.TotalLinks,
		"valid", totals.Valid,
		"invalid", totals.Invalid,
		"redirected", totals.Redirected,
		"available", totals.Available,
		"unavailable", totals.Unavailable,
	)
	return result, nil
}

// AuditBatch delegates a multi-URL audit to the provider and logs the outcome.
func (s *Service) AuditBatch(ctx context.Context, urls []string) (*model.BatchResponse, error) {
	logger := s.logger.With("url_count", len(urls), "request_id", requestid.FromContext(ctx))

	result, err := s.provider.AuditBatch(ctx, urls)
	if err != nil {
		return nil, s.fail(ctx, logger, "batch audit failed", err)
	}

	for _, f := range result.Failures {
		logger.Warn("batch url failed", "url", f.URL, "kind", f.Kind, "error", f.Error)
	}
	logger.Info("batch audit complete",
		"successful", result.Summary.Successful,
		"failed", result.Summary.Failed,
		"total_links", result.Summary.TotalLinks,
	)
	return result, nil
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, msg string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &errs.AppError{
			Kind:    errs.Timeout,
			Message: "The audit timed out. The target URL may be slow to respond.",
			Cause:   err,
		}
	}

	attrs := []any{"error", err}
	var appErr *errs.AppError
	if errors.As(err, &appErr) && appErr.UpstreamStatus != 0 {
		attrs = append(attrs, "target_status", appErr.UpstreamStatus)
	}
	logger.Error(msg, attrs...)
	return err
}
