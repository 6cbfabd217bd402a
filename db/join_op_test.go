package db

import "testing"

func idDesc(col string) *TupleDesc {
	d, err := NewTupleDesc([]FieldType{{Fname: col, Ftype: IntType}})
	if err != nil {
		panic(err)
	}
	return d
}

func intRows(desc *TupleDesc, values ...int32) []*Tuple {
	rows := make([]*Tuple, len(values))
	for i, v := range values {
		rows[i] = &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: v}}}
	}
	return rows
}

func TestJoinEqualityManyToMany(t *testing.T) {
	leftDesc := idDesc("a")
	rightDesc := idDesc("b")

	// left has two rows with key 5, right has two rows with key 5: 2x2 = 4
	// matches; plus one unmatched row on each side contributes nothing.
	left := newSliceOperator(leftDesc, intRows(leftDesc, 5, 5, 9))
	right := newSliceOperator(rightDesc, intRows(rightDesc, 5, 5, 1))

	leftField := FieldExpr{Field: leftDesc.Fields[0]}
	rightField := FieldExpr{Field: rightDesc.Fields[0]}

	join, err := NewJoin(left, leftField, right, rightField, 1024)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	if err := join.Open(NewTID()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer join.Close()

	rows := drainAll(t, join)
	if len(rows) != 4 {
		t.Fatalf("got %d joined rows, want 4", len(rows))
	}
	for _, r := range rows {
		if len(r.Fields) != 2 {
			t.Fatalf("joined tuple should have 2 fields, got %d", len(r.Fields))
		}
	}
}

func TestJoinRejectsTypeMismatch(t *testing.T) {
	leftDesc := idDesc("a")
	rightDesc := personDesc()

	left := newSliceOperator(leftDesc, intRows(leftDesc, 1))
	right := newSliceOperator(rightDesc, peopleRows(rightDesc))

	leftField := FieldExpr{Field: leftDesc.Fields[0]}
	rightField := FieldExpr{Field: rightDesc.Fields[0]} // string field

	if _, err := NewJoin(left, leftField, right, rightField, 1024); err == nil {
		t.Fatalf("expected TypeMismatchError joining an int field against a string field")
	}
}

func TestJoinNoMatches(t *testing.T) {
	leftDesc := idDesc("a")
	rightDesc := idDesc("b")

	left := newSliceOperator(leftDesc, intRows(leftDesc, 1, 2))
	right := newSliceOperator(rightDesc, intRows(rightDesc, 3, 4))

	leftField := FieldExpr{Field: leftDesc.Fields[0]}
	rightField := FieldExpr{Field: rightDesc.Fields[0]}

	join, err := NewJoin(left, leftField, right, rightField, 1024)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	if err := join.Open(NewTID()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer join.Close()

	rows := drainAll(t, join)
	if len(rows) != 0 {
		t.Fatalf("got %d joined rows, want 0", len(rows))
	}
}
