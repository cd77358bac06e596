// Package app wires the source client, classifier, repositories and cache
// into the application service behind the HTTP layer.
package app
