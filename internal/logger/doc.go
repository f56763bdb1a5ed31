// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag and the log_level setting.
//
// Services accept a context and extract the logger from it, so an install
// run can tag every entry with its install id.
package logger
