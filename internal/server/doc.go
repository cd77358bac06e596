// Package server exposes the application service over HTTP with echo.
package server
