package analyzer

import (
	"context"

	"github.com/Bahjat/link-audit/internal/model"
)

// AuditProvider defines the contract for any link audit engine.
type AuditProvider interface {
	Extract(ctx context.Context, targetURL string) (*model.ExtractResult, error)
	Audit(ctx context.Context, targetURL string) (*model.AuditResult, error)
	AuditBatch(ctx context.Context, urls []string) (*model.BatchResponse, error)
}
