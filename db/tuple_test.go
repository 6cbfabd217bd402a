package db

import (
	"bytes"
	"strings"
	"testing"

	"github.com/d4l3k/messagediff"
)

func personDesc() *TupleDesc {
	td, err := NewTupleDesc([]FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
	})
	if err != nil {
		panic(err)
	}
	return td
}

func TestNewTupleDescRejectsEmpty(t *testing.T) {
	if _, err := NewTupleDesc(nil); err == nil {
		t.Fatalf("expected error for empty TupleDesc")
	}
}

func TestTupleDescSize(t *testing.T) {
	td := personDesc()
	want := StringType.Width() + IntType.Width()
	if got := td.Size(); got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
}

func TestFindFieldInTdAmbiguous(t *testing.T) {
	td := &TupleDesc{Fields: []FieldType{
		{Fname: "id", TableQualifier: "a", Ftype: IntType},
		{Fname: "id", TableQualifier: "b", Ftype: IntType},
	}}
	if _, err := findFieldInTd(FieldType{Fname: "id", Ftype: IntType}, td); err == nil {
		t.Fatalf("expected AmbiguousNameError")
	}
	idx, err := findFieldInTd(FieldType{Fname: "id", TableQualifier: "b", Ftype: IntType}, td)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
}

func TestFindFieldInTdNotFound(t *testing.T) {
	td := personDesc()
	if _, err := findFieldInTd(FieldType{Fname: "missing", Ftype: IntType}, td); err == nil {
		t.Fatalf("expected error for missing field")
	}
}

func TestTupleRoundTrip(t *testing.T) {
	td := personDesc()
	tup := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}

	var buf bytes.Buffer
	if err := tup.writeTo(&buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if buf.Len() != td.Size() {
		t.Fatalf("serialized tuple is %d bytes, want %d", buf.Len(), td.Size())
	}

	got, err := readTupleFrom(&buf, td)
	if err != nil {
		t.Fatalf("readTupleFrom: %v", err)
	}

	if diff, equal := messagediff.PrettyDiff(tup.Fields, got.Fields); !equal {
		t.Fatalf("round-tripped tuple differs: %s", diff)
	}
}

func TestWriteStringFieldTooLong(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", StringLength()+1)
	if err := writeStringField(&buf, StringField{Value: long}); err == nil {
		t.Fatalf("expected error for over-length string field")
	}
}

func TestTupleEquals(t *testing.T) {
	td := personDesc()
	a := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}
	b := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}
	c := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}}

	if !a.equals(b) {
		t.Fatalf("expected a == b")
	}
	if a.equals(c) {
		t.Fatalf("expected a != c")
	}
}

func TestProject(t *testing.T) {
	td := personDesc()
	tup := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}

	projected, err := tup.project([]FieldType{{Fname: "age", Ftype: IntType}})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(projected.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(projected.Fields))
	}
	if projected.Fields[0] != (IntField{Value: 17}) {
		t.Fatalf("unexpected projected value %v", projected.Fields[0])
	}
}

func TestCompareField(t *testing.T) {
	td := personDesc()
	young := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}
	old := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "josie"}, IntField{Value: 20}}}

	ageField := FieldExpr{Field: td.Fields[1]}
	state, err := young.compareField(old, ageField)
	if err != nil {
		t.Fatalf("compareField: %v", err)
	}
	if state != OrderedLessThan {
		t.Fatalf("expected OrderedLessThan, got %v", state)
	}
}

func TestEvalPredLike(t *testing.T) {
	if !(StringField{Value: "database systems"}).EvalPred(StringField{Value: "data"}, OpLike) {
		t.Fatalf("expected substring match")
	}
	if (StringField{Value: "database systems"}).EvalPred(StringField{Value: "xyz"}, OpLike) {
		t.Fatalf("expected no substring match")
	}
}

func TestTupleKeyDeterministic(t *testing.T) {
	td := personDesc()
	a := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}
	b := &Tuple{Desc: *td, Fields: []DBValue{StringField{Value: "annie"}, IntField{Value: 17}}}
	if a.tupleKey() != b.tupleKey() {
		t.Fatalf("expected equal keys for equal tuples")
	}
}
