package ids

import "testing"

func TestNew_IsValidAndSorted(t *testing.T) {
	a := New()
	b := New()
	if !Valid(a) || !Valid(b) {
		t.Fatalf("generated ids must be valid: %q %q", a, b)
	}
	if a >= b {
		t.Fatalf("expected monotonic ids, got %q then %q", a, b)
	}
}

func TestValid_RejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "alice", "01ARZ3NDEKTSV4RRFFQ69G5FA", "not-a-ulid-at-all-0000000"} {
		if Valid(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
