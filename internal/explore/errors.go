package explore

import "fmt"

// StageErrorCode classifies a stage failure for routing and logging.
type StageErrorCode string

const (
	// ErrObserveFailed means the browser driver could not produce a DOM
	// snapshot (navigation error, timeout, crashed target).
	ErrObserveFailed StageErrorCode = "OBSERVE_FAILED"
	// ErrLLMFailed means the model call itself errored (network, rate
	// limit, provider 5xx) rather than returning a bad payload.
	ErrLLMFailed StageErrorCode = "LLM_FAILED"
	// ErrBadLLMResponse means the model responded but the payload could
	// not be parsed into a valid decision.
	ErrBadLLMResponse StageErrorCode = "BAD_LLM_RESPONSE"
	// ErrLoopGuard means a recursion or step-budget limit was hit.
	ErrLoopGuard StageErrorCode = "LOOP_GUARD"
)

// StageError classifies a domain failure inside a stage. The stages report
// failure through ExplorationStatus rather than NodeResult.Err and record
// the formatted StageError in the action history, so the code and URL stay
// readable without re-deriving them from a wrapped error chain.
type StageError struct {
	Code  StageErrorCode
	Stage string
	URL   NormalizedURL
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s at %s: %v", e.Stage, e.Code, e.URL, e.Cause)
	}
	return fmt.Sprintf("%s: %s at %s", e.Stage, e.Code, e.URL)
}

func (e *StageError) Unwrap() error { return e.Cause }

// NewStageError builds a StageError with the given classification.
func NewStageError(stage string, code StageErrorCode, url NormalizedURL, cause error) *StageError {
	return &StageError{Code: code, Stage: stage, URL: url, Cause: cause}
}
