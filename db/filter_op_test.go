package db

import "testing"

func TestFilterIntGreaterThan(t *testing.T) {
	desc := personDesc()
	child := newSliceOperator(desc, peopleRows(desc))
	ageField := FieldExpr{Field: desc.Fields[1]}

	filt, err := NewFilter(ConstExpr{Value: IntField{Value: 17}, Ftype: IntType}, OpGt, ageField, child)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	tid := NewTID()
	if err := filt.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer filt.Close()

	rows := drainAll(t, filt)
	if len(rows) != 2 {
		t.Fatalf("filtered %d rows, want 2", len(rows))
	}
}

func TestFilterStringEquality(t *testing.T) {
	desc := personDesc()
	child := newSliceOperator(desc, peopleRows(desc))
	nameField := FieldExpr{Field: desc.Fields[0]}

	filt, err := NewFilter(ConstExpr{Value: StringField{Value: "josie"}, Ftype: StringType}, OpEq, nameField, child)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	tid := NewTID()
	if err := filt.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer filt.Close()

	rows := drainAll(t, filt)
	if len(rows) != 1 {
		t.Fatalf("filtered %d rows, want 1", len(rows))
	}
}

func TestFilterRewind(t *testing.T) {
	desc := personDesc()
	child := newSliceOperator(desc, peopleRows(desc))
	ageField := FieldExpr{Field: desc.Fields[1]}

	filt, err := NewFilter(ConstExpr{Value: IntField{Value: 19}, Ftype: IntType}, OpGt, ageField, child)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	tid := NewTID()
	if err := filt.Open(tid); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer filt.Close()

	first := drainAll(t, filt)
	if err := filt.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	second := drainAll(t, filt)
	if len(first) != len(second) {
		t.Fatalf("Rewind produced %d rows, want the original %d", len(second), len(first))
	}
}
