package app

import (
	"fmt"

	"github.com/google/uuid"
)

// RequestValidator reports whether an analysis request is well-formed.
// Implementations return messages, not errors: a malformed request is a
// normal outcome, not a fault.
type RequestValidator interface {
	ValidateAnalysisRequest(req AnalysisRequest) (bool, []string)
}

type requestValidator struct {
	maxComments int
}

// NewRequestValidator returns the default validator. maxComments bounds the
// per-request comment limit; zero means no bound.
func NewRequestValidator(maxComments int) RequestValidator {
	return &requestValidator{maxComments: maxComments}
}

func (v *requestValidator) ValidateAnalysisRequest(req AnalysisRequest) (bool, []string) {
	var errs []string

	if req.PostID == "" {
		errs = append(errs, "post_id is required")
	} else if _, err := uuid.Parse(req.PostID); err != nil {
		errs = append(errs, "post_id must be a valid UUID")
	}

	if req.UserID == "" {
		errs = append(errs, "user_id is required")
	} else if _, err := uuid.Parse(req.UserID); err != nil {
		errs = append(errs, "user_id must be a valid UUID")
	}

	if req.Priority != "" && !req.Priority.Valid() {
		errs = append(errs, fmt.Sprintf("priority must be one of low, normal, high (got %q)", req.Priority))
	}

	if req.Options.MaxComments < 0 {
		errs = append(errs, "options.max_comments must not be negative")
	} else if v.maxComments > 0 && req.Options.MaxComments > v.maxComments {
		errs = append(errs, fmt.Sprintf("options.max_comments must not exceed %d", v.maxComments))
	}

	return len(errs) == 0, errs
}
