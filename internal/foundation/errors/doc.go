// Package errors provides the classified error primitives used across sitebuilder.
//
// Every stage of a build reports failures as a ClassifiedError so the CLI can pick
// an exit code and operators can tell a content problem from a publish problem
// without re-running with verbose logging.
//
// Key features:
//   - ErrorCategory: broad classification (config, discovery, asset, publish, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether retrying can help
//   - ErrorBuilder: fluent construction with context and cause
//   - CLIErrorAdapter: exit code mapping and user-facing formatting
//
// Example usage:
//
//	err := errors.DiscoveryError("missing markdown file").
//		WithCause(os.ErrNotExist).
//		WithContext("dir", postDir).
//		Build()
package errors
