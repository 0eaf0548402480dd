package festival

import "fmt"

// FetchError reports a failed upstream calendar fetch: a network
// failure, a timeout, or a non-success status.
type FetchError struct {
	Year       int
	URL        string
	StatusCode int
	Err        error
}

// Error renders a human-readable description of the failure.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch calendar for %d: status %d from %s", e.Year, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("fetch calendar for %d: %v", e.Year, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
