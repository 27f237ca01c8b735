package reachfive

import (
	"reflect"
	"testing"
)

func TestScopeSet_Union(t *testing.T) {
	got := NewScopeSet("openid", "email").Union(NewScopeSet("profile"))
	if got.String() != "email openid profile" {
		t.Errorf("Union() = %q, want %q", got.String(), "email openid profile")
	}

	dup := NewScopeSet("openid", "email").Union(NewScopeSet("email", "openid"))
	if len(dup) != 2 {
		t.Errorf("Union() kept duplicates: %v", dup)
	}
}

func TestScopeSet_OrderIndependent(t *testing.T) {
	a := NewScopeSet("profile", "openid", "email")
	b := ParseScopeSet("email  openid profile openid")
	if a.String() != b.String() {
		t.Errorf("%q != %q", a.String(), b.String())
	}
}

func TestResolveScope(t *testing.T) {
	defaults := ParseScopeSet("openid email")
	tests := []struct {
		name     string
		override ScopeSet
		want     string
	}{
		{"empty override", nil, "email openid"},
		{"extra scope", NewScopeSet("offline_access"), "email offline_access openid"},
		{"overlap", NewScopeSet("openid"), "email openid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveScope(defaults, tt.override).String(); got != tt.want {
				t.Errorf("ResolveScope() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScopeSet_Basics(t *testing.T) {
	var empty ScopeSet
	if !empty.IsEmpty() || empty.String() != "" {
		t.Errorf("zero ScopeSet should be empty")
	}
	s := NewScopeSet(" openid ", "", "email")
	if !s.Contains("openid") || s.Contains("") {
		t.Errorf("Contains() wrong for %v", s)
	}
}

func TestParseScopes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"openid", []string{"openid"}},
		{"openid email openid", []string{"openid", "email"}},
	}
	for _, tt := range tests {
		if got := ParseScopes(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseScopes(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
