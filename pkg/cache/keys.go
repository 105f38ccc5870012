package cache

import "strings"

// Key joins namespaced key parts with ':'. Parts are opaque strings joined
// verbatim; no delimiter escaping is performed, so a part containing ':'
// can collide with another logical key. Identifiers used in keys are UUIDs
// and fixed namespace words, which keeps this safe in practice.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Hand-maintained list of key-family prefixes derived from a user's rating
// data. Any new cached view that depends on rating data must be added here,
// or it will serve stale data until its own TTL lapses.
func userViewPrefixes(userID string) []string {
	return []string{
		Key("dashboard", "user", userID),
		Key("profile", "user", userID),
		Key("ratings", "user", userID),
	}
}
