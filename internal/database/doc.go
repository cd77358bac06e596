// Package database implements the PostgreSQL-backed repositories for analysis
// runs and classified items, plus connection and migration bootstrap.
package database
