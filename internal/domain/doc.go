// Package domain holds the core model types and the interfaces that bind the
// application together. It has no dependencies on storage, transport or any
// other adapter.
package domain
