package search

import (
	"fmt"
	"net/http"
)

// StatusError is a non-2xx answer from the search API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("brave search: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether another attempt could succeed. Client errors other than rate
// limiting will fail the same way every time.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
