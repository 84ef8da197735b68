// Package logger wraps zap for the rest of the module.
//
// A sugared logger travels in the context.Context.  Code that has a
// context logs with the package functions (InfoKV, DebugKV, ...),
// which fall back to a global logger when the context has none.
package logger
