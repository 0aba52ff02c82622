package catalog

import "testing"

func intPtr(n int) *int { return &n }

func TestNewPageDefaults(t *testing.T) {
	p := NewPage(nil, nil)
	if p.Offset != 0 || p.Count != DefaultPageCount {
		t.Errorf("NewPage(nil, nil) = %+v, want offset 0 count %d", p, DefaultPageCount)
	}
}

func TestNewPageClampsNegativeOffset(t *testing.T) {
	p := NewPage(intPtr(-5), nil)
	if p.Offset != 0 {
		t.Errorf("NewPage(-5, nil).Offset = %d, want 0", p.Offset)
	}
}

func TestNewPageZeroCountMeansEmpty(t *testing.T) {
	p := NewPage(nil, intPtr(0))
	if p.Count != 0 {
		t.Errorf("NewPage(nil, 0).Count = %d, want 0", p.Count)
	}
}

func TestNewPageClampsOverMax(t *testing.T) {
	p := NewPage(nil, intPtr(MaxPageCount+100))
	if p.Count != MaxPageCount {
		t.Errorf("NewPage(nil, over-max).Count = %d, want %d", p.Count, MaxPageCount)
	}
}

func TestNewPagePassesThroughValid(t *testing.T) {
	p := NewPage(intPtr(40), intPtr(10))
	if p.Offset != 40 || p.Count != 10 {
		t.Errorf("NewPage(40, 10) = %+v, want offset 40 count 10", p)
	}
}

func TestOptionalNoneLeavesDestinationUnchanged(t *testing.T) {
	dst := "original"
	None[string]().Apply(&dst)
	if dst != "original" {
		t.Errorf("None().Apply() changed dst to %q, want unchanged", dst)
	}
}

func TestOptionalSomeOverwritesDestination(t *testing.T) {
	dst := "original"
	Some("new").Apply(&dst)
	if dst != "new" {
		t.Errorf("Some(\"new\").Apply() = %q, want \"new\"", dst)
	}
}

func TestOptionalGet(t *testing.T) {
	if v, ok := None[int]().Get(); ok || v != 0 {
		t.Errorf("None[int]().Get() = (%d, %v), want (0, false)", v, ok)
	}
	if v, ok := Some(7).Get(); !ok || v != 7 {
		t.Errorf("Some(7).Get() = (%d, %v), want (7, true)", v, ok)
	}
}
