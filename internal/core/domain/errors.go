package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	// ErrIndexUnavailable means a search index could not be reached
	// after retries. Fatal for the query.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrGenerationFailed means the generation service failed after
	// retries. Fatal for the query; validation-stage failures degrade
	// confidence instead of raising this.
	ErrGenerationFailed = errors.New("generation failed")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
