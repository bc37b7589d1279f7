// Package utils holds the configuration and logging plumbing shared by the CLI.
//
// ConfigurationLoader layers defaults, embedded YAML, an optional file and
// prefixed environment variables through Viper. LoggerFactory builds zap
// loggers from the configured level and format.
package utils
