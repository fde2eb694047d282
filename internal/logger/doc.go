// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - an optional rotating file sink (lumberjack) for long-running daemons,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and leveled helpers (InfoKV, WarnKV, CriticalKV, etc.).
//
// Services take a context and extract the logger from it, so every log line
// carries the name of the component that produced it.
package logger
