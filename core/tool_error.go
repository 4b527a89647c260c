package core

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// ============================================================================
// Tool invocation errors
// ============================================================================
//
// Handlers return (text, error). Every failure a handler can produce is a
// *ToolError tagged with a category; ToResult is the single place where the
// pair is turned into the MCP wire result.
//
//   - CategoryInputError   arguments failed schema validation (error result)
//   - CategoryNotFound     a location could not be resolved (error result)
//   - CategoryServiceError an upstream API answered with a non-2xx status (error result)
//   - CategoryEmpty        the request worked but matched nothing (plain text result)

// ErrorCategory classifies tool errors.
type ErrorCategory string

const (
	// CategoryInputError indicates the arguments violated the tool's input schema
	CategoryInputError ErrorCategory = "INPUT_ERROR"

	// CategoryNotFound indicates the requested location could not be resolved
	CategoryNotFound ErrorCategory = "NOT_FOUND"

	// CategoryServiceError indicates the upstream API failed.
	// Details carry "status" and "body".
	CategoryServiceError ErrorCategory = "SERVICE_ERROR"

	// CategoryEmpty indicates zero matching records. It is informational,
	// not a failure, and renders as a normal text result.
	CategoryEmpty ErrorCategory = "EMPTY_RESULT"
)

// ToolError represents a structured error from a tool invocation.
//
// Usage in handlers:
//
//	return "", core.NewLocationNotFound(input, `Could not find location "Atlantis" in Denmark.`)
type ToolError struct {
	// Code is a machine-readable error identifier (e.g., "LOCATION_NOT_FOUND")
	Code string `json:"code"`

	// Message is the human-readable text sent back to the caller verbatim
	Message string `json:"message"`

	// Category groups errors for rendering and HTTP status decisions
	Category ErrorCategory `json:"category"`

	// Retryable hints that the same call may succeed later
	Retryable bool `json:"retryable"`

	// Details provides additional context.
	// Common keys: "tool", "input", "status", "body"
	Details map[string]string `json:"details,omitempty"`

	err error
}

// Error implements the error interface
func (e *ToolError) Error() string {
	return e.Message
}

// Unwrap exposes the category sentinel (ErrValidation, ErrLocationNotFound, ...)
func (e *ToolError) Unwrap() error {
	return e.err
}

// Status returns the upstream HTTP status carried by a service error, or 0.
func (e *ToolError) Status() int {
	if e.Details == nil {
		return 0
	}
	status, _ := strconv.Atoi(e.Details["status"])
	return status
}

// NewValidationError reports arguments that failed the tool's input schema.
func NewValidationError(tool string, problems []string) *ToolError {
	msg := fmt.Sprintf("Invalid arguments for tool %s", tool)
	for i, p := range problems {
		if i == 0 {
			msg += ": " + p
		} else {
			msg += "; " + p
		}
	}
	return &ToolError{
		Code:     "INVALID_ARGUMENTS",
		Message:  msg,
		Category: CategoryInputError,
		Details:  map[string]string{"tool": tool},
		err:      ErrValidation,
	}
}

// NewInputError reports a semantic argument problem the schema cannot express
// (for example, "Provide either code or name.").
func NewInputError(message string) *ToolError {
	return &ToolError{
		Code:     "INVALID_ARGUMENTS",
		Message:  message,
		Category: CategoryInputError,
		err:      ErrValidation,
	}
}

// NewLocationNotFound reports that all resolution strategies failed for input.
func NewLocationNotFound(input, message string) *ToolError {
	return &ToolError{
		Code:     "LOCATION_NOT_FOUND",
		Message:  message,
		Category: CategoryNotFound,
		Details:  map[string]string{"input": input},
		err:      ErrLocationNotFound,
	}
}

// NewUpstreamError reports a non-2xx answer from an upstream API. The body is
// embedded in the message when present.
func NewUpstreamError(api string, status int, body string) *ToolError {
	msg := fmt.Sprintf("%s API error (%d)", api, status)
	if body != "" {
		msg += ": " + body
	}
	return &ToolError{
		Code:      "UPSTREAM_ERROR",
		Message:   msg,
		Category:  CategoryServiceError,
		Retryable: status == http.StatusTooManyRequests || status >= 500,
		Details: map[string]string{
			"api":    api,
			"status": strconv.Itoa(status),
			"body":   body,
		},
		err: ErrUpstream,
	}
}

// NewNoData reports an upstream answer that parsed but carried no usable
// series (for example, a forecast without time steps).
func NewNoData(api, message string) *ToolError {
	return &ToolError{
		Code:     "NO_DATA",
		Message:  message,
		Category: CategoryServiceError,
		Details:  map[string]string{"api": api},
		err:      ErrNoData,
	}
}

// NewEmptyResult reports a successful request with nothing to show.
func NewEmptyResult(message string) *ToolError {
	return &ToolError{
		Code:     "EMPTY_RESULT",
		Message:  message,
		Category: CategoryEmpty,
		err:      ErrEmptyResult,
	}
}

// UpstreamStatus returns the upstream HTTP status when err is a service error.
func UpstreamStatus(err error) (int, bool) {
	var te *ToolError
	if errors.As(err, &te) && te.Category == CategoryServiceError {
		return te.Status(), true
	}
	return 0, false
}

// ToResult converts a handler outcome into the MCP wire result.
// Empty results become plain text. Input errors are returned as written;
// every other failure is an error-flagged "Error: <message>" result.
func ToResult(text string, err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultText(text)
	}

	var te *ToolError
	if errors.As(err, &te) {
		switch te.Category {
		case CategoryEmpty:
			return mcp.NewToolResultText(te.Message)
		case CategoryInputError:
			return mcp.NewToolResultError(te.Message)
		}
		return mcp.NewToolResultError(errorPrefix + te.Message)
	}

	return mcp.NewToolResultError(errorPrefix + err.Error())
}

const errorPrefix = "Error: "

// ToolResponse is the JSON envelope returned by the REST capability endpoint.
//
// Success response:
//
//	ToolResponse{Success: true, Data: "..."}
//
// Error response:
//
//	ToolResponse{Success: false, Error: &ToolError{...}}
type ToolResponse struct {
	Success bool       `json:"success"`
	Data    string     `json:"data,omitempty"`
	Error   *ToolError `json:"error,omitempty"`
}

// NewToolResponse builds the REST envelope for a handler outcome. Empty
// results count as success with the informational text as data.
func NewToolResponse(text string, err error) ToolResponse {
	if err == nil {
		return ToolResponse{Success: true, Data: text}
	}
	var te *ToolError
	if errors.As(err, &te) {
		if te.Category == CategoryEmpty {
			return ToolResponse{Success: true, Data: te.Message}
		}
		return ToolResponse{Success: false, Error: te}
	}
	return ToolResponse{Success: false, Error: &ToolError{
		Code:     "INTERNAL_ERROR",
		Message:  err.Error(),
		Category: CategoryServiceError,
	}}
}

// HTTPStatusForCategory returns the HTTP status code for an error category.
//
// Mapping:
//   - CategoryInputError   → 400 Bad Request
//   - CategoryNotFound     → 404 Not Found
//   - CategoryServiceError → 502 Bad Gateway
//   - CategoryEmpty        → 200 OK
//   - Unknown              → 500 Internal Server Error
func HTTPStatusForCategory(category ErrorCategory) int {
	switch category {
	case CategoryInputError:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryServiceError:
		return http.StatusBadGateway
	case CategoryEmpty:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
