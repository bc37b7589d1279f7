// Package codecommit adapts the AWS CodeCommit API to the source provider port.
//
// Every call is routed through a retry policy; AWS error codes are mapped onto
// the domain sentinel errors so callers can classify failures with errors.Is.
package codecommit
