package stats

import (
	"testing"

	"github.com/turinglake/heapdb/db"
)

func seededIntHistogram(t *testing.T) *IntHistogram {
	t.Helper()
	h, err := NewIntHistogram(10, 1, 100)
	if err != nil {
		t.Fatalf("NewIntHistogram: %v", err)
	}
	for v := int64(1); v <= 100; v++ {
		h.AddValue(v)
	}
	return h
}

func TestIntHistogramRejectsInvalidRange(t *testing.T) {
	if _, err := NewIntHistogram(0, 1, 10); err == nil {
		t.Fatalf("expected an error for nBins = 0")
	}
	if _, err := NewIntHistogram(10, 50, 1); err == nil {
		t.Fatalf("expected an error when vMax < vMin")
	}
}

func TestIntHistogramEqualitySelectivity(t *testing.T) {
	h := seededIntHistogram(t)
	sel := h.EstimateSelectivity(db.OpEq, 50)
	if sel <= 0 || sel > 1 {
		t.Fatalf("OpEq selectivity out of range: %v", sel)
	}
	if sel := h.EstimateSelectivity(db.OpEq, 1000); sel != 0 {
		t.Fatalf("OpEq selectivity for an out-of-range value should be 0, got %v", sel)
	}
}

func TestIntHistogramOrderingSelectivity(t *testing.T) {
	h := seededIntHistogram(t)

	gt := h.EstimateSelectivity(db.OpGt, 50)
	lt := h.EstimateSelectivity(db.OpLt, 50)
	eq := h.EstimateSelectivity(db.OpEq, 50)

	if gt < 0 || gt > 1 || lt < 0 || lt > 1 {
		t.Fatalf("ordering selectivities out of [0,1]: gt=%v lt=%v", gt, lt)
	}
	// gt + lt + eq should account for the whole distribution, modulo the
	// histogram's bucket-interpolation error.
	if total := gt + lt + eq; total < 0.9 || total > 1.1 {
		t.Fatalf("gt+lt+eq = %v, want close to 1.0", total)
	}

	if sel := h.EstimateSelectivity(db.OpGt, 1000); sel != 0 {
		t.Fatalf("OpGt past the max should be 0, got %v", sel)
	}
	if sel := h.EstimateSelectivity(db.OpLt, -1000); sel != 0 {
		t.Fatalf("OpLt below the min should be 0, got %v", sel)
	}
}

func TestIntHistogramBoundaryValues(t *testing.T) {
	h := seededIntHistogram(t)

	if sel := h.EstimateSelectivity(db.OpGe, 1); sel <= 0 {
		t.Fatalf("OpGe at vMin should select close to the whole range, got %v", sel)
	}
	if sel := h.EstimateSelectivity(db.OpLe, 100); sel <= 0 {
		t.Fatalf("OpLe at vMax should select close to the whole range, got %v", sel)
	}
}

func TestIntHistogramEmptyHasZeroSelectivity(t *testing.T) {
	h, err := NewIntHistogram(10, 1, 100)
	if err != nil {
		t.Fatalf("NewIntHistogram: %v", err)
	}
	if sel := h.EstimateSelectivity(db.OpEq, 5); sel != 0 {
		t.Fatalf("empty histogram should have 0 selectivity, got %v", sel)
	}
}

func TestStringHistogramEquality(t *testing.T) {
	h, err := NewStringHistogram()
	if err != nil {
		t.Fatalf("NewStringHistogram: %v", err)
	}
	for _, s := range []string{"alice", "bob", "alice", "alice", "carol"} {
		h.AddValue(s)
	}

	eqSel := h.EstimateSelectivity(db.OpEq, "alice")
	if eqSel <= 0 || eqSel > 1 {
		t.Fatalf("OpEq selectivity for a seen value out of range: %v", eqSel)
	}

	neqSel := h.EstimateSelectivity(db.OpNeq, "alice")
	if neqSel < 0 || neqSel >= 1 {
		t.Fatalf("OpNeq selectivity for a seen value out of range: %v", neqSel)
	}
}

func TestStringHistogramUnsupportedOp(t *testing.T) {
	h, err := NewStringHistogram()
	if err != nil {
		t.Fatalf("NewStringHistogram: %v", err)
	}
	h.AddValue("alice")

	if sel := h.EstimateSelectivity(db.OpGt, "alice"); sel != 1.0 {
		t.Fatalf("OpGt is not meaningful over a frequency sketch, want 1.0, got %v", sel)
	}
}

func TestStringHistogramEmptyHasZeroSelectivity(t *testing.T) {
	h, err := NewStringHistogram()
	if err != nil {
		t.Fatalf("NewStringHistogram: %v", err)
	}
	if sel := h.EstimateSelectivity(db.OpEq, "anything"); sel != 0 {
		t.Fatalf("empty histogram should have 0 selectivity, got %v", sel)
	}
}
