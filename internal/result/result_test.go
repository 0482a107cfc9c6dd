package result

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Wrap(KindUpstream, "polygon.prev", errors.New("status 502"))
	wrapped := fmt.Errorf("research AAPL: %w", base)

	if got := KindOf(wrapped); got != KindUpstream {
		t.Fatalf("KindOf = %q, want %q", got, KindUpstream)
	}
	if !IsKind(wrapped, KindUpstream) {
		t.Fatalf("IsKind should match through fmt wrapping")
	}
	if IsKind(nil, KindUpstream) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestResultOr(t *testing.T) {
	ok := Ok(42.5)
	if v := ok.Or(0); v != 42.5 {
		t.Fatalf("Ok.Or = %v", v)
	}

	failed := Fail[float64](KindParse, "extract", errors.New("bad json"))
	if failed.OK() {
		t.Fatalf("failed result reports OK")
	}
	if v := failed.Or(-1); v != -1 {
		t.Fatalf("Fail.Or = %v, want fallback", v)
	}
	if failed.Kind() != KindParse {
		t.Fatalf("Kind = %q", failed.Kind())
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(KindUpstream, "op", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", err)
	}
}
