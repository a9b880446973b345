// Package apperr defines the tagged failures surfaced to pgagent users.
//
// Every failure of a chat turn falls into one of four kinds. Callers branch on
// the kind with KindOf and render it with UserMessage; raw causes only reach
// the logs.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tags a failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindConnectivity  Kind = "connectivity"
	KindTimeout       Kind = "timeout"
	KindUnclassified  Kind = "unclassified"
)

// Error is a tagged failure.
type Error struct {
	Kind Kind
	// Op names the step that failed, e.g. "open session".
	Op string
	// Missing lists unset variables for configuration errors.
	Missing []string
	// Timeout is the ceiling that expired for timeout errors.
	Timeout time.Duration
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case len(e.Missing) > 0:
		return "missing required environment variables: " + strings.Join(e.Missing, ", ")
	case e.Kind == KindTimeout:
		return fmt.Sprintf("request timed out after %s", e.Timeout)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Op == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Configuration reports unset required variables.
func Configuration(missing ...string) error {
	return &Error{Kind: KindConfiguration, Op: "load config", Missing: missing}
}

// Connectivity wraps any failure to open or use the analysis server session.
func Connectivity(op string, err error) error {
	return &Error{Kind: KindConnectivity, Op: op, Err: err}
}

// Timeout reports that a request exceeded d.
func Timeout(d time.Duration, err error) error {
	return &Error{Kind: KindTimeout, Timeout: d, Err: err}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
// Untagged errors are KindUnclassified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnclassified
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// UserMessage renders err as the plain-text message shown in the chat.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return "Unexpected Error: " + err.Error()
	}

	switch ae.Kind {
	case KindTimeout:
		secs := int(ae.Timeout.Seconds())
		if secs <= 0 {
			secs = 60
		}
		return fmt.Sprintf("Query timed out after %d seconds. Please try a simpler query or check your database connection.", secs)
	case KindConfiguration:
		return "Configuration Error: " + capitalize(ae.Error()) +
			"\n\nPlease check your .env file and ensure all database credentials are set."
	case KindConnectivity:
		return "Connection Error: " + ae.Error() +
			"\n\nPlease ensure the PostgreSQL MCP Pro server is running."
	default:
		return "Unexpected Error: " + ae.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
