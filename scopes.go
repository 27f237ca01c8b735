package reachfive

import (
	"sort"
	"strings"
)

// Well-known scope values
const (
	ScopeOpenID        = "openid"         // Issue an id_token and populate AuthToken.User
	ScopeEmail         = "email"          // Email claims
	ScopePhone         = "phone"          // Phone claims
	ScopeProfile       = "profile"        // Profile claims
	ScopeAddress       = "address"        // Address claims
	ScopeOfflineAccess = "offline_access" // Issue a refresh token
	ScopeEvents        = "events"         // Access to the user's events
	ScopeFullWrite     = "full_write"     // Update the profile
)

// ScopeSet is a deduplicated, sorted set of scope tokens.
// The zero value is an empty set.
type ScopeSet []string

// NewScopeSet builds a ScopeSet from any number of scope tokens.
// Blank tokens and duplicates are dropped.
func NewScopeSet(scopes ...string) ScopeSet {
	seen := make(map[string]bool, len(scopes))
	out := make(ScopeSet, 0, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// ParseScopeSet parses a space separated scope string.
func ParseScopeSet(scope string) ScopeSet {
	return NewScopeSet(ParseScopes(scope)...)
}

// Union returns the scopes present in either set.
func (s ScopeSet) Union(other ScopeSet) ScopeSet {
	all := make([]string, 0, len(s)+len(other))
	all = append(all, s...)
	all = append(all, other...)
	return NewScopeSet(all...)
}

// Contains reports whether scope is in the set.
func (s ScopeSet) Contains(scope string) bool {
	return ContainsScope(s, scope)
}

// IsEmpty reports whether the set has no scopes.
func (s ScopeSet) IsEmpty() bool {
	return len(s) == 0
}

// String serializes the set the way the backend expects it: space joined.
func (s ScopeSet) String() string {
	return JoinScopes(NewScopeSet(s...))
}

// ResolveScope combines the server default with a caller override.
// An empty override yields the default alone.
func ResolveScope(defaults, override ScopeSet) ScopeSet {
	return defaults.Union(override)
}

// ParseScopes parses a space-separated scope string into a slice
func ParseScopes(scopeString string) []string {
	if scopeString == "" {
		return nil
	}
	scopes := strings.Fields(scopeString)
	// Remove duplicates
	seen := make(map[string]bool)
	result := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// JoinScopes joins a slice of scopes into a space-separated string
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ContainsScope checks if a scope is present in the list
func ContainsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
