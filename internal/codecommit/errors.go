package codecommit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	apiErrorTemplateConstant       = "codecommit %s failed (%s): %s"
	apiErrorUnknownCodeConstant    = "unknown"
	throttlingErrorCodeConstant    = "ThrottlingException"
	tooManyRequestsCodeConstant    = "TooManyRequestsException"
	notFoundCodeSuffixConstant     = "DoesNotExistException"
	accessDeniedCodeConstant       = "AccessDeniedException"
	unrecognizedClientCodeConstant = "UnrecognizedClientException"
	invalidSignatureCodeConstant   = "InvalidSignatureException"
	expiredTokenCodeConstant       = "ExpiredTokenException"
)

// OperationName identifies a CodeCommit API call.
type OperationName string

// CodeCommit operations issued by the client.
const (
	OperationListRepositories OperationName = OperationName("ListRepositories")
	OperationListBranches     OperationName = OperationName("ListBranches")
	OperationGetBranch        OperationName = OperationName("GetBranch")
	OperationGetCommit        OperationName = OperationName("GetCommit")
	OperationGetFolder        OperationName = OperationName("GetFolder")
	OperationGetBlob          OperationName = OperationName("GetBlob")
	OperationGetRepository    OperationName = OperationName("GetRepository")
)

// APIError describes a failed CodeCommit call.
type APIError struct {
	Operation OperationName
	Code      string
	Sentinel  error
	Cause     error
}

// Error describes the failure.
func (apiError APIError) Error() string {
	code := apiError.Code
	if len(code) == 0 {
		code = apiErrorUnknownCodeConstant
	}
	causeMessage := ""
	if apiError.Cause != nil {
		causeMessage = apiError.Cause.Error()
	}
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Operation, code, causeMessage)
}

// Unwrap exposes the mapped sentinel and the underlying SDK error.
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

func wrapAPIError(operation OperationName, cause error) error {
	if cause == nil {
		return nil
	}

	wrapped := APIError{Operation: operation, Cause: cause}

	var smithyError smithy.APIError
	if errors.As(cause, &smithyError) {
		wrapped.Code = smithyError.ErrorCode()
		wrapped.Sentinel = sentinelForCode(wrapped.Code)
	}

	return wrapped
}

func sentinelForCode(code string) error {
	switch {
	case strings.HasSuffix(code, notFoundCodeSuffixConstant):
		return domain.ErrNotFound
	case code == accessDeniedCodeConstant,
		code == unrecognizedClientCodeConstant,
		code == invalidSignatureCodeConstant,
		code == expiredTokenCodeConstant:
		return domain.ErrUnauthorized
	default:
		return nil
	}
}

// IsPermanentError reports whether a CodeCommit failure cannot succeed on retry.
// Missing resources, rejected credentials, and client-side validation faults are permanent;
// throttling and server faults are not.
func IsPermanentError(failure error) bool {
	if errors.Is(failure, domain.ErrNotFound) || errors.Is(failure, domain.ErrUnauthorized) {
		return true
	}

	var smithyError smithy.APIError
	if !errors.As(failure, &smithyError) {
		return false
	}

	switch smithyError.ErrorCode() {
	case throttlingErrorCodeConstant, tooManyRequestsCodeConstant:
		return false
	}

	return smithyError.ErrorFault() == smithy.FaultClient
}
