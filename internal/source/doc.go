// Package source wraps the third-party scrape API that fetches a subject's
// posts and replies. It owns pagination, cookie authentication and rate-limit
// handling; it knows nothing about sentiment.
package source
