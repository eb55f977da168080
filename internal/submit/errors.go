package submit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSubmitInProgress is returned when a grid already has a submission in flight.
	ErrSubmitInProgress = errors.New("submit already in progress")

	// ErrInvalidMutation is returned for an empty or malformed mutation name.
	ErrInvalidMutation = errors.New("invalid mutation name")
)

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Operation string
	Messages  []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

// HTTPError is returned when the endpoint answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("graphql endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("graphql endpoint returned status %d: %s", e.StatusCode, e.Body)
}
