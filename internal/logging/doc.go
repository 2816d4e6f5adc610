// Package logging provides a simple leveled logging interface for the
// video library.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions, including degraded volume identities
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. Core packages log through a component
// Logger obtained with For, which prefixes each line with the component name.
package logging
