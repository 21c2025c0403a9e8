// Package cachestore provides a prefix-namespaced key/value view over a
// shared redis connection with per-key TTL bookkeeping.
//
// A Store knows nothing about what its values mean. Each flow owns its own
// prefix so confirmation codes, password reset codes and send-throttle
// markers never collide while sharing one redis database.
package cachestore
