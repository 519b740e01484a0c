package linkaudit

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bahjat/link-audit/internal/model"
	"github.com/Bahjat/link-audit/internal/platform/errs"
)

// MaxBatchSize is the largest number of seed URLs one batch may carry.
const MaxBatchSize = 20

const batchTopN = 5

// ValidateBatch checks batch size and URL syntax without touching the
// network.
func ValidateBatch(urls []string) error {
	if len(urls) == 0 {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "At least one URL is required."}
	}
	if len(urls) > MaxBatchSize {
		return &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: fmt.Sprintf("A batch may contain at most %d URLs, got %d.", MaxBatchSize, len(urls)),
		}
	}
	for i, u := range urls {
		if _, err := parseSeedURL(u); err != nil {
			var appErr *errs.AppError
			if errors.As(err, &appErr) {
				appErr.Message = fmt.Sprintf("urls[%d]: %s", i, appErr.Message)
			}
			return err
		}
	}
	return nil
}

// AuditBatch audits every seed URL under the page gate. One URL's failure
// is reported in its own entry and never affects the others.
func (e *Engine) AuditBatch(ctx context.Context, urls []string) (*model.BatchResponse, error) {
	if err := ValidateBatch(urls); err != nil {
		return nil, err
	}

	outcomes := RunEach(e.pageGate, urls,
		func(u string) seedOutcome {
			audit, err := e.Audit(ctx, u)
			if err != nil {
				return failedSeed(u, err)
			}
			return seedOutcome{result: model.BatchResult{URL: u, Success: true, AuditResult: audit}}
		},
		failedSeed,
	)

	resp := &model.BatchResponse{
		Results:  make([]model.BatchResult, 0, len(outcomes)),
		Failures: []model.BatchFailure{},
	}
	for _, o := range outcomes {
		resp.Results = append(resp.Results, o.result)
		if o.failure != nil {
			resp.Failures = append(resp.Failures, *o.failure)
		}
	}
	resp.Summary = summarizeBatch(resp.Results, batchTopN)
	return resp, nil
}

type seedOutcome struct {
	result  model.BatchResult
	failure *model.BatchFailure
}

func failedSeed(u string, err error) seedOutcome {
	f := &model.BatchFailure{URL: u, Kind: errs.Unknown.String(), Error: err.Error()}
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		f.Kind = appErr.Kind.String()
		f.Status = appErr.UpstreamStatus
		f.Error = appErr.Message
	}
	return seedOutcome{
		result:  model.BatchResult{URL: u, Error: f.Error},
		failure: f,
	}
}
