package migrate

import (
	"encoding/csv"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	csvHeaderRepositoryConstant             = "repository"
	csvHeaderDestinationConstant            = "destination"
	csvHeaderRepositoryStatusConstant       = "repository_status"
	csvHeaderBranchConstant                 = "branch"
	csvHeaderBranchStatusConstant           = "branch_status"
	csvHeaderOperationConstant              = "operation"
	csvHeaderCommitConstant                 = "commit_id"
	csvHeaderErrorConstant                  = "error"
	reportFormatUnsupportedTemplateConstant = "unsupported report format %q"
	reportWriteErrorTemplateConstant        = "writing report failed: %w"
)

// BranchReport is the serialized form of a BranchResult.
type BranchReport struct {
	Branch    string `yaml:"branch"`
	Status    string `yaml:"status"`
	Operation string `yaml:"operation,omitempty"`
	CommitID  string `yaml:"commit_id,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

// RepositoryReport is the serialized form of a RepositoryResult.
type RepositoryReport struct {
	Repository  string         `yaml:"repository"`
	Destination string         `yaml:"destination,omitempty"`
	Status      string         `yaml:"status"`
	Operation   string         `yaml:"operation,omitempty"`
	Error       string         `yaml:"error,omitempty"`
	Branches    []BranchReport `yaml:"branches,omitempty"`
}

// SummaryReport is the serialized form of a RunSummary.
type SummaryReport struct {
	Succeeded    int                `yaml:"succeeded"`
	Partial      int                `yaml:"partial"`
	Failed       int                `yaml:"failed"`
	Skipped      int                `yaml:"skipped"`
	Repositories []RepositoryReport `yaml:"repositories"`
}

// NewSummaryReport converts a summary into its serialized form.
func NewSummaryReport(summary RunSummary) SummaryReport {
	report := SummaryReport{
		Succeeded:    summary.CountByStatus(RepositoryStatusSucceeded),
		Partial:      summary.CountByStatus(RepositoryStatusPartial),
		Failed:       summary.CountByStatus(RepositoryStatusFailed),
		Skipped:      summary.CountByStatus(RepositoryStatusSkipped),
		Repositories: make([]RepositoryReport, 0, len(summary.Repositories)),
	}

	for _, repositoryResult := range summary.Repositories {
		repositoryReport := RepositoryReport{
			Repository:  string(repositoryResult.Repository),
			Destination: repositoryResult.Destination,
			Status:      string(repositoryResult.Status),
			Operation:   string(repositoryResult.Operation),
			Error:       errorText(repositoryResult.Error),
		}
		for _, branchResult := range repositoryResult.Branches {
			repositoryReport.Branches = append(repositoryReport.Branches, BranchReport{
				Branch:    string(branchResult.Branch),
				Status:    string(branchResult.Status),
				Operation: string(branchResult.Operation),
				CommitID:  string(branchResult.CommitID),
				Error:     errorText(branchResult.Error),
			})
		}
		report.Repositories = append(report.Repositories, repositoryReport)
	}

	return report
}

// WriteReport renders the summary in the requested format. CSV output has one row per branch
// and one row for each repository that produced no branch outcomes.
func WriteReport(writer io.Writer, summary RunSummary, format ReportFormat) error {
	report := NewSummaryReport(summary)
	switch format {
	case ReportFormatYAML:
		encoder := yaml.NewEncoder(writer)
		if encodeError := encoder.Encode(report); encodeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, encodeError)
		}
		if closeError := encoder.Close(); closeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, closeError)
		}
		return nil
	case ReportFormatCSV, "":
		return writeCSVReport(writer, report)
	default:
		return fmt.Errorf(reportFormatUnsupportedTemplateConstant, format)
	}
}

func writeCSVReport(writer io.Writer, report SummaryReport) error {
	csvWriter := csv.NewWriter(writer)
	header := []string{
		csvHeaderRepositoryConstant,
		csvHeaderDestinationConstant,
		csvHeaderRepositoryStatusConstant,
		csvHeaderBranchConstant,
		csvHeaderBranchStatusConstant,
		csvHeaderOperationConstant,
		csvHeaderCommitConstant,
		csvHeaderErrorConstant,
	}
	if writeError := csvWriter.Write(header); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}

	for _, repositoryReport := range report.Repositories {
		if len(repositoryReport.Branches) == 0 {
			record := []string{
				repositoryReport.Repository,
				repositoryReport.Destination,
				repositoryReport.Status,
				"",
				"",
				repositoryReport.Operation,
				"",
				repositoryReport.Error,
			}
			if writeError := csvWriter.Write(record); writeError != nil {
				return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
			}
			continue
		}
		for _, branchReport := range repositoryReport.Branches {
			record := []string{
				repositoryReport.Repository,
				repositoryReport.Destination,
				repositoryReport.Status,
				branchReport.Branch,
				branchReport.Status,
				branchReport.Operation,
				branchReport.CommitID,
				branchReport.Error,
			}
			if writeError := csvWriter.Write(record); writeError != nil {
				return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
			}
		}
	}

	csvWriter.Flush()
	if flushError := csvWriter.Error(); flushError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, flushError)
	}
	return nil
}

func errorText(failure error) string {
	if failure == nil {
		return ""
	}
	return failure.Error()
}
