// Package darwin implements the platform accessibility and process layers on
// macOS through the AXUIElement and AXObserver APIs, and registers them with
// the platform package on import. Everything except the error mapping needs
// cgo; without it the package registers nothing and the CLI reports the
// platform as unsupported.
package darwin
