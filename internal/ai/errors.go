package ai

import (
	"errors"
	"fmt"
	"time"
)

// AuthError is a 401/403 from a hosted provider: the api_key setting (or the
// provider's key variable) was rejected.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return "provider rejected api_key: " + e.APIError.Error()
}

// RateLimitError is a 429. RetryAfter is zero when the provider sent no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := "provider rate limit hit (see retry_max_attempts)"
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (server asked to wait %s)", e.RetryAfter.Round(time.Second))
	}
	return msg + ": " + e.APIError.Error()
}

// ModelNotFoundError means default_model or --model names a model the
// provider does not serve.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return "model unknown to provider (check default_model / --model): " + e.APIError.Error()
}

// BadRequestError is a 400, usually a prompt over the model's context window
// or a max_tokens value it refuses.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string {
	return "provider refused the summary request (prompt size or max_tokens): " + e.APIError.Error()
}

// QuotaExceededError is an error body reporting exhausted credit or quota.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string {
	return "provider credit exhausted for api_key: " + e.APIError.Error()
}

// ServerError is a 5xx from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string {
	return "provider failed (raise retry_max_attempts if this persists): " + e.APIError.Error()
}

// UnreachableError means no connection could be made, typically a stopped
// Ollama at ollama_host.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "LLM runtime unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("no LLM runtime answering at ollama_host %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("LLM runtime unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// Hint returns a short remediation suggestion for typed provider errors, or
// "" when there is nothing specific to suggest.
func Hint(err error) string {
	var (
		auth   *AuthError
		rl     *RateLimitError
		mnf    *ModelNotFoundError
		quota  *QuotaExceededError
		unreac *UnreachableError
	)
	switch {
	case errors.As(err, &auth):
		return "check api_key (samreport config set api_key ...) or SAMREPORT_API_KEY"
	case errors.As(err, &rl):
		return "the provider is rate limiting requests; retry later or raise retry_max_attempts"
	case errors.As(err, &mnf):
		return "the model is not available; pick another with --model (for Ollama run 'ollama pull <model>')"
	case errors.As(err, &quota):
		return "the provider account is out of credit or quota"
	case errors.As(err, &unreac):
		return "start the local runtime ('ollama serve') or fix ollama_host"
	}
	return ""
}
