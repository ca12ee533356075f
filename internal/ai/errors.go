package ai

import "fmt"

// Kind classifies why a completion failed.
type Kind int

const (
	// KindMissingCredential means no API key was configured. No request is made.
	KindMissingCredential Kind = iota + 1
	// KindInvalidCredential means the API rejected the key.
	KindInvalidCredential
	// KindNetwork covers transport errors, timeouts and other API errors.
	KindNetwork
	// KindEmptyResponse means the API answered without any text.
	KindEmptyResponse
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing credential"
	case KindInvalidCredential:
		return "invalid credential"
	case KindNetwork:
		return "network"
	case KindEmptyResponse:
		return "empty response"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// CompletionError is returned by every failed completion call. Callers treat the report as not generated.
type CompletionError struct {
	Kind Kind
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
