// Package server runs the HTTP surface and coordinates graceful shutdown.
package server
