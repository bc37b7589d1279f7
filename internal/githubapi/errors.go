package githubapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v32/github"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	apiErrorTemplateConstant         = "github %s failed with status %d: %s"
	apiErrorWithoutStatusConstant    = "github %s failed: %s"
	alreadyExistsFragmentConstant    = "already exists"
	referenceMissingFragmentConstant = "reference does not exist"
	repositoryEmptyFragmentConstant  = "repository is empty"
	invalidInputTemplateConstant     = "%s: %s"
	minimumClientErrorStatusConstant = http.StatusBadRequest
	minimumServerErrorStatusConstant = http.StatusInternalServerError
)

// OperationName identifies a GitHub API call.
type OperationName string

// GitHub operations issued by the client.
const (
	OperationResolveOwner     OperationName = OperationName("ResolveOwner")
	OperationCreateRepository OperationName = OperationName("CreateRepository")
	OperationCreateBlob       OperationName = OperationName("CreateBlob")
	OperationCreateTree       OperationName = OperationName("CreateTree")
	OperationGetTree          OperationName = OperationName("GetTree")
	OperationCreateCommit     OperationName = OperationName("CreateCommit")
	OperationGetReference     OperationName = OperationName("GetReference")
	OperationCreateReference  OperationName = OperationName("CreateReference")
	OperationUpdateReference  OperationName = OperationName("UpdateReference")
	OperationDeleteReference  OperationName = OperationName("DeleteReference")
	OperationEditRepository   OperationName = OperationName("EditRepository")
)

// InvalidInputError describes a request rejected before reaching GitHub.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// APIError describes a failed GitHub API call.
type APIError struct {
	Operation  OperationName
	StatusCode int
	Message    string
	Sentinel   error
	Cause      error
}

// Error describes the failure.
func (apiError APIError) Error() string {
	if apiError.StatusCode == 0 {
		return fmt.Sprintf(apiErrorWithoutStatusConstant, apiError.Operation, apiError.Message)
	}
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Operation, apiError.StatusCode, apiError.Message)
}

// Unwrap exposes the mapped sentinel and the underlying client error.
func (apiError APIError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if apiError.Sentinel != nil {
		unwrapped = append(unwrapped, apiError.Sentinel)
	}
	if apiError.Cause != nil {
		unwrapped = append(unwrapped, apiError.Cause)
	}
	return unwrapped
}

func wrapAPIError(operation OperationName, response *github.Response, cause error) error {
	if cause == nil {
		return nil
	}

	wrapped := APIError{Operation: operation, Message: cause.Error(), Cause: cause}
	if response != nil && response.Response != nil {
		wrapped.StatusCode = response.StatusCode
	}

	var errorResponse *github.ErrorResponse
	if errors.As(cause, &errorResponse) {
		wrapped.Message = describeErrorResponse(errorResponse)
		if errorResponse.Response != nil {
			wrapped.StatusCode = errorResponse.Response.StatusCode
		}
	}

	wrapped.Sentinel = sentinelFor(wrapped.StatusCode, wrapped.Message, cause)
	return wrapped
}

func describeErrorResponse(errorResponse *github.ErrorResponse) string {
	fragments := []string{errorResponse.Message}
	for _, detail := range errorResponse.Errors {
		if len(detail.Message) > 0 {
			fragments = append(fragments, detail.Message)
		}
	}
	return strings.Join(fragments, "; ")
}

func sentinelFor(statusCode int, message string, cause error) error {
	if isRateLimited(cause) {
		return nil
	}
	switch statusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusUnprocessableEntity:
		normalizedMessage := strings.ToLower(message)
		if strings.Contains(normalizedMessage, alreadyExistsFragmentConstant) {
			return domain.ErrAlreadyExists
		}
		if strings.Contains(normalizedMessage, referenceMissingFragmentConstant) {
			return domain.ErrNotFound
		}
	}
	return nil
}

func isRateLimited(cause error) bool {
	var rateLimitError *github.RateLimitError
	var abuseRateLimitError *github.AbuseRateLimitError
	return errors.As(cause, &rateLimitError) || errors.As(cause, &abuseRateLimitError)
}

// IsPermanentError reports whether a GitHub failure cannot succeed on retry.
// Client errors are permanent except 408, 429 and the 409 GitHub answers while a
// freshly initialized repository is still empty. Input rejected locally is permanent.
func IsPermanentError(failure error) bool {
	var inputError InvalidInputError
	if errors.As(failure, &inputError) {
		return true
	}

	var apiError APIError
	if !errors.As(failure, &apiError) {
		return false
	}

	if isRateLimited(apiError.Cause) {
		return false
	}

	switch apiError.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	case http.StatusConflict:
		if strings.Contains(strings.ToLower(apiError.Message), repositoryEmptyFragmentConstant) {
			return false
		}
	}

	return apiError.StatusCode >= minimumClientErrorStatusConstant && apiError.StatusCode < minimumServerErrorStatusConstant
}
