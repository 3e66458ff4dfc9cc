package domain

import (
	"slices"
	"testing"
	"time"
)

func TestUser_LockedAt(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	cases := []struct {
		name     string
		failures int
		last     *time.Time
		now      time.Time
		max      int
		want     bool
	}{
		{"below threshold", 2, &last, last, 3, false},
		{"inside window", 3, &last, last.Add(time.Minute), 3, true},
		{"window boundary", 3, &last, last.Add(window), 3, false},
		{"after window", 5, &last, last.Add(window + time.Second), 3, false},
		{"no failure time", 3, nil, last, 3, false},
		{"lockout disabled", 9, &last, last, 0, false},
	}
	for _, tc := range cases {
		u := &User{FailedLoginAttempts: tc.failures, LastFailedLoginAt: tc.last}
		if got := u.LockedAt(tc.now, tc.max, window); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestMembershipChange_Apply(t *testing.T) {
	u := &User{
		AccountIDs: []string{"a1"},
		RoleIDs:    []string{"r1", "r2"},
		GroupIDs:   []string{"g1"},
	}
	MembershipChange{
		AddAccountIDs:  []string{"a1", "a2"},
		RemoveRoleIDs:  []string{"r1", "missing"},
		AddGroupIDs:    []string{"g2"},
		RemoveGroupIDs: nil,
	}.Apply(u)

	if !slices.Equal(u.AccountIDs, []string{"a1", "a2"}) {
		t.Fatalf("accounts: %v", u.AccountIDs)
	}
	if !slices.Equal(u.RoleIDs, []string{"r2"}) {
		t.Fatalf("roles: %v", u.RoleIDs)
	}
	if !slices.Equal(u.GroupIDs, []string{"g1", "g2"}) {
		t.Fatalf("groups: %v", u.GroupIDs)
	}
}
