// Package redis holds the Redis-backed pieces of the service: the profile
// cache in front of PostgreSQL, the cross-instance dispatch relay, a
// single-holder lease for periodic jobs, and client hooks that keep Redis
// outages from stalling requests.
package redis
