package oauth1

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// RemoteError describes an explicit rejection by the remote server
type RemoteError struct {
	StatusCode int
	Problem    string
	Message    string
}

func (e *RemoteError) Error() string {
	switch {
	case e.Problem != "" && e.Message != "":
		return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Problem, e.Message)
	case e.Problem != "":
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Problem)
	case e.Message != "":
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("status %d", e.StatusCode)
	}
}

// newRemoteError extracts the problem from an error response.
// The WP OAuth1 server answers either form-encoded oauth_problem or a JSON
// {"code","message"} body.
func newRemoteError(status int, body []byte) *RemoteError {
	e := &RemoteError{StatusCode: status}
	trimmed := strings.TrimSpace(string(body))

	var wpErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &wpErr) == nil {
		e.Problem = wpErr.Code
		e.Message = wpErr.Message
		return e
	}

	if values, err := url.ParseQuery(trimmed); err == nil {
		e.Problem = values.Get("oauth_problem")
	}
	if e.Problem == "" && len(trimmed) > 0 && len(trimmed) <= 200 {
		e.Message = trimmed
	}
	return e
}
