package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	pathutils "github.com/temirov/repomigrate/internal/utils/path"
)

// Environment variable names consulted when no explicit token source is configured.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const (
	environmentTokenMissingTemplateConstant = "environment variable %s is not set"
	fileReadErrorTemplateConstant           = "unable to read token file %s: %w"
	fileTokenEmptyErrorTemplateConstant     = "token file %s is empty"
	tokenSourceErrorTemplateConstant        = "%w: %w"
	fallbackMissingTemplateConstant         = "%w: none of %s is set"
	environmentFileLoadTemplateConstant     = "unable to load environment file %s: %w"
	fallbackVariableSeparatorConstant       = ", "
)

// ErrMissingToken indicates no destination credential could be resolved.
var ErrMissingToken = errors.New("destination credential is not configured")

var fallbackTokenVariables = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// Resolver retrieves destination tokens.
type Resolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	homeExpander      *pathutils.HomeExpander
}

// NewResolver creates a resolver; nil collaborators fall back to the process environment and filesystem.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader) *Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	return &Resolver{environmentLookup: environmentLookup, fileReader: fileReader, homeExpander: pathutils.NewHomeExpander()}
}

// WithHomeExpander replaces the expander applied to "~" in file token sources.
func (resolver *Resolver) WithHomeExpander(homeExpander *pathutils.HomeExpander) *Resolver {
	if homeExpander != nil {
		resolver.homeExpander = homeExpander
	}
	return resolver
}

// ResolveToken returns the token described by tokenSourceValue. When the value is blank the
// well-known GitHub variables are consulted in order. Every failure wraps ErrMissingToken.
func (resolver *Resolver) ResolveToken(tokenSourceValue string) (string, error) {
	if len(strings.TrimSpace(tokenSourceValue)) == 0 {
		return resolver.resolveFallback()
	}

	source, parseError := ParseTokenSource(tokenSourceValue)
	if parseError != nil {
		return "", fmt.Errorf(tokenSourceErrorTemplateConstant, ErrMissingToken, parseError)
	}

	token, readError := resolver.read(source)
	if readError != nil {
		return "", fmt.Errorf(tokenSourceErrorTemplateConstant, ErrMissingToken, readError)
	}

	return token, nil
}

func (resolver *Resolver) resolveFallback() (string, error) {
	for _, variableName := range fallbackTokenVariables {
		value, found := resolver.environmentLookup(variableName)
		trimmedValue := strings.TrimSpace(value)
		if found && len(trimmedValue) > 0 {
			return trimmedValue, nil
		}
	}
	return "", fmt.Errorf(fallbackMissingTemplateConstant, ErrMissingToken, strings.Join(fallbackTokenVariables, fallbackVariableSeparatorConstant))
}

func (resolver *Resolver) read(source TokenSource) (string, error) {
	switch source.Type {
	case TokenSourceTypeFile:
		tokenPath := resolver.homeExpander.Expand(source.Reference)
		contents, readError := resolver.fileReader(tokenPath)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, tokenPath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, tokenPath)
		}
		return trimmedValue, nil
	default:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	}
}

// LoadEnvironmentFiles loads KEY=VALUE pairs from the provided .env files into the process
// environment without overriding variables that are already set. Missing files are skipped.
func LoadEnvironmentFiles(filePaths ...string) error {
	var loadErrors []error
	for _, filePath := range filePaths {
		loadError := godotenv.Load(filePath)
		if loadError == nil || errors.Is(loadError, fs.ErrNotExist) {
			continue
		}
		loadErrors = append(loadErrors, fmt.Errorf(environmentFileLoadTemplateConstant, filePath, loadError))
	}
	return errors.Join(loadErrors...)
}
