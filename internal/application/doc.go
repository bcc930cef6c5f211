// Package application wires the cost engine, session storage, HTTP handlers
// and server together so that main only parses flags and manages shutdown.
package application
