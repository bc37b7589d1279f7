package migrate

import (
	"fmt"
	"strings"
)

const (
	operationErrorTemplateConstant        = "%s failed: %v"
	branchLookupErrorTemplateConstant     = "branch %s: %s failed: %v"
	provisioningErrorTemplateConstant     = "provisioning %s failed: %v"
	pagingLoopErrorTemplateConstant       = "%s returned page token %q twice"
	duplicateBranchErrorTemplateConstant  = "branch %s listed more than once"
	extractionErrorTemplateConstant       = "%d branch lookups failed in %s: %s"
	contentIntegrityErrorTemplateConstant = "blob %s: %s hash %s does not match"
	invalidInputErrorTemplateConstant     = "%s: %s"
	extractionErrorSeparatorConstant      = "; "
)

// OperationName identifies a migration step.
type OperationName string

// Migration steps recorded in errors, logs, and the summary report.
const (
	OperationListRepositories   OperationName = OperationName("list_repositories")
	OperationListBranches       OperationName = OperationName("list_branches")
	OperationResolveBranch      OperationName = OperationName("resolve_branch")
	OperationGetCommit          OperationName = OperationName("get_commit")
	OperationProvision          OperationName = OperationName("provision_repository")
	OperationPlanHistory        OperationName = OperationName("plan_history")
	OperationTransferContent    OperationName = OperationName("transfer_content")
	OperationCreateCommit       OperationName = OperationName("create_commit")
	OperationUpdateReference    OperationName = OperationName("update_reference")
	OperationMigrateRepository  OperationName = OperationName("migrate_repository")
	OperationAlignDefaultBranch OperationName = OperationName("align_default_branch")
)

// InvalidInputError describes configuration or arguments rejected before any provider call.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps a failure with the step that produced it.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the failure.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// PagingLoopError reports a provider handing back a page token it already returned.
type PagingLoopError struct {
	Operation OperationName
	PageToken string
}

// Error describes the loop.
func (loopError PagingLoopError) Error() string {
	return fmt.Sprintf(pagingLoopErrorTemplateConstant, loopError.Operation, loopError.PageToken)
}

// DuplicateBranchError reports a branch name listed twice for one repository.
type DuplicateBranchError struct {
	Branch string
}

// Error describes the duplicate.
func (duplicateError DuplicateBranchError) Error() string {
	return fmt.Sprintf(duplicateBranchErrorTemplateConstant, duplicateError.Branch)
}

// BranchLookupError reports a branch whose tip or tip commit could not be read.
type BranchLookupError struct {
	Branch    string
	Operation OperationName
	Cause     error
}

// Error describes the failure.
func (lookupError BranchLookupError) Error() string {
	return fmt.Sprintf(branchLookupErrorTemplateConstant, lookupError.Branch, lookupError.Operation, lookupError.Cause)
}

// Unwrap exposes the underlying cause.
func (lookupError BranchLookupError) Unwrap() error {
	return lookupError.Cause
}

// ExtractionError collects the branch lookups that failed while the rest of the repository
// was extracted.
type ExtractionError struct {
	Repository string
	Failures   []BranchLookupError
}

// Error describes every failed lookup.
func (extractionError ExtractionError) Error() string {
	descriptions := make([]string, 0, len(extractionError.Failures))
	for _, failure := range extractionError.Failures {
		descriptions = append(descriptions, failure.Error())
	}
	return fmt.Sprintf(extractionErrorTemplateConstant, len(extractionError.Failures), extractionError.Repository, strings.Join(descriptions, extractionErrorSeparatorConstant))
}

// Unwrap exposes each lookup failure.
func (extractionError ExtractionError) Unwrap() []error {
	unwrapped := make([]error, 0, len(extractionError.Failures))
	for _, failure := range extractionError.Failures {
		unwrapped = append(unwrapped, failure)
	}
	return unwrapped
}

// ProvisioningError reports a destination repository that could not be created.
type ProvisioningError struct {
	Repository string
	Cause      error
}

// Error describes the failure.
func (provisioningError ProvisioningError) Error() string {
	return fmt.Sprintf(provisioningErrorTemplateConstant, provisioningError.Repository, provisioningError.Cause)
}

// Unwrap exposes the underlying cause.
func (provisioningError ProvisioningError) Unwrap() error {
	return provisioningError.Cause
}

// ContentIntegrityError reports content whose git object hash disagrees with its identifier.
type ContentIntegrityError struct {
	BlobID       string
	Side         string
	ComputedHash string
}

// Error describes the mismatch.
func (integrityError ContentIntegrityError) Error() string {
	return fmt.Sprintf(contentIntegrityErrorTemplateConstant, integrityError.BlobID, integrityError.Side, integrityError.ComputedHash)
}
