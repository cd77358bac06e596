// Package redis provides the Redis client bootstrap and the timeline bucket
// cache.
package redis
