package db

import "testing"

func TestProjectRenamesField(t *testing.T) {
	desc := personDesc()
	child := newSliceOperator(desc, peopleRows(desc))
	nameField := FieldExpr{Field: desc.Fields[0]}

	proj, err := NewProjectOp([]Expr{nameField}, []string{"who"}, false, child)
	if err != nil {
		t.Fatalf("NewProjectOp: %v", err)
	}
	if err := proj.Open(NewTID()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer proj.Close()

	if proj.TupleDesc().Fields[0].Fname != "who" {
		t.Fatalf("expected renamed field %q, got %q", "who", proj.TupleDesc().Fields[0].Fname)
	}

	rows := drainAll(t, proj)
	if len(rows) != 3 {
		t.Fatalf("projected %d rows, want 3", len(rows))
	}
	if len(rows[0].Fields) != 1 {
		t.Fatalf("expected 1 field per projected tuple, got %d", len(rows[0].Fields))
	}
}

func TestProjectMismatchedLengths(t *testing.T) {
	desc := personDesc()
	child := newSliceOperator(desc, nil)
	nameField := FieldExpr{Field: desc.Fields[0]}

	if _, err := NewProjectOp([]Expr{nameField}, []string{"a", "b"}, false, child); err == nil {
		t.Fatalf("expected error for mismatched field/name counts")
	}
}

func TestProjectDistinct(t *testing.T) {
	desc := personDesc()
	ageField := FieldExpr{Field: desc.Fields[1]}
	child := newSliceOperator(desc, peopleRows(desc)) // ages: 17, 20, 20

	proj, err := NewProjectOp([]Expr{ageField}, []string{"age"}, true, child)
	if err != nil {
		t.Fatalf("NewProjectOp: %v", err)
	}
	if err := proj.Open(NewTID()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer proj.Close()

	rows := drainAll(t, proj)
	if len(rows) != 2 {
		t.Fatalf("distinct projected %d rows, want 2 (17 and 20 deduplicated)", len(rows))
	}
}
