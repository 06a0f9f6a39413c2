package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/propfolio/insight-engine/pkg/apperrors"
)

// classifyError maps a provider failure onto the pipeline error taxonomy.
// Timeouts are distinguished because callers may choose to resubmit; every
// other generator failure is terminal for the request.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrors.ErrGeneratorTimeout, err)
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return fmt.Errorf("%w: %v", apperrors.ErrGeneratorTimeout, err)
	}

	return fmt.Errorf("%w: %v", apperrors.ErrGeneratorFailure, err)
}
