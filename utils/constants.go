// File: utils/constants.go
package utils

import "time"

// SessionCachePrefix is the prefix used for wizard session cache keys.
const SessionCachePrefix = "wizard:"

// SessionCacheTTL is the time-to-live for wizard session entries.
const SessionCacheTTL = 30 * time.Minute

// LockoutCachePrefix is the prefix used for submission lockout keys.
const LockoutCachePrefix = "lockout:"
