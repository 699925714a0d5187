package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrappedSentinelMatches(t *testing.T) {
	sentinel := Conflict("", "duplicate")
	cause := errors.New("Error 1062: Duplicate entry")
	err := fmt.Errorf("create genre: %w", sentinel.Wrap(cause))

	if !errors.Is(err, sentinel) {
		t.Fatal("wrapped copy should match the sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause should stay reachable")
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
	if errors.Is(err, NotFound("duplicate")) {
		t.Fatal("different kind must not match")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if k := KindOf(errors.New("boom")); k != KindInternal {
		t.Fatalf("KindOf = %v, want %v", k, KindInternal)
	}
}

func TestValidationCopiesFields(t *testing.T) {
	fields := map[string]string{"title": "too short"}
	e := Validation(fields)
	fields["title"] = "changed"
	if e.Fields["title"] != "too short" {
		t.Fatal("Validation must copy the field map")
	}
	if e.Error() != "validation failed (title: too short)" {
		t.Fatalf("Error() = %q", e.Error())
	}
}
