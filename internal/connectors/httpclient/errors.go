package httpclient

import (
	"fmt"
	"net/http"

	"github.com/custodia-labs/lexsync/internal/errors"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 200

// APIError is a non-2xx response from an upstream API.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func newAPIError(status int, url string, body []byte) *APIError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{StatusCode: status, URL: url, Body: string(body)}
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}
