package llms

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/emotibot/emotibot/pkg/models"
)

const (
	retryBackoffMin = 200 * time.Millisecond
	retryBackoffMax = 5 * time.Second
)

// GenerationBudget is the longest a ResilientLLM built with the same arguments can take:
// every attempt timing out plus the longest backoff between attempts.
func GenerationBudget(maxRetries int, attemptTimeout time.Duration) time.Duration {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultGenerationTimeout
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return time.Duration(maxRetries+1)*attemptTimeout + time.Duration(maxRetries)*retryBackoffMax
}

// ResilientLLM bounds every generation attempt with a timeout and retries attempts
// that fail with a GenerationError. Cancellation of the parent context stops retries.
type ResilientLLM struct {
	llm            models.LLM
	policy         retrypolicy.RetryPolicy[string]
	attemptTimeout time.Duration
}

var _ models.LLM = &ResilientLLM{}

func NewResilientLLM(llm models.LLM, maxRetries int, attemptTimeout time.Duration) *ResilientLLM {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultGenerationTimeout
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ResilientLLM{
		llm:            llm,
		policy:         buildGenerationRetryPolicy(maxRetries),
		attemptTimeout: attemptTimeout,
	}
}

func buildGenerationRetryPolicy(maxRetries int) retrypolicy.RetryPolicy[string] {
	return retrypolicy.Builder[string]().
		HandleErrors(models.ErrGeneration).
		WithBackoff(retryBackoffMin, retryBackoffMax).
		WithMaxRetries(maxRetries).
		Build()
}

func (r *ResilientLLM) Call(ctx context.Context, prompt string) (string, error) {
	return failsafe.Get(func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()

		response, err := r.llm.Call(attemptCtx, prompt)
		// an attempt that ran out of time is retried while the caller is still waiting
		if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return "", models.NewGenerationError("generation attempt timed out", err)
		}
		return response, err
	}, r.policy)
}
