package db

// This file defines methods for working with tuples, including the types
// DBType, FieldType, TupleDesc, DBValue, IntField, StringField, Tuple and
// RecordID.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// DBType is the type of a tuple field.
type DBType int

const (
	IntType DBType = iota
	StringType
	// UnknownType is used internally during parsing, when the type of a
	// bare field reference is not yet known.
	UnknownType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// Width returns the fixed on-disk width, in bytes, of a field of this type
// under the active Config.
func (t DBType) Width() int {
	switch t {
	case IntType:
		return 4
	case StringType:
		return StringLength() + 4
	}
	return 0
}

// FieldType is the type of a field in a tuple: its name and DBType.
// TableQualifier may be empty, depending on whether a query specified one.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc is the schema of a tuple: an ordered, non-empty sequence of
// (type, name?) items.
type TupleDesc struct {
	Fields []FieldType
}

// NewTupleDesc validates that desc has at least one field.
func NewTupleDesc(fields []FieldType) (*TupleDesc, error) {
	if len(fields) == 0 {
		return nil, newError(TypeMismatchError, "a TupleDesc must have at least one field")
	}
	return &TupleDesc{Fields: fields}, nil
}

// NumFields returns the number of fields in the schema.
func (td *TupleDesc) NumFields() int {
	return len(td.Fields)
}

// FieldType returns the type of the field at position i.
func (td *TupleDesc) FieldType(i int) DBType {
	return td.Fields[i].Ftype
}

// Size returns the fixed byte width of a tuple with this schema: the sum of
// each field's width. (The legacy numFields*INT.width formula from the
// teacher's source is not used here — it silently breaks for STRING fields.)
func (td *TupleDesc) Size() int {
	size := 0
	for _, f := range td.Fields {
		size += f.Ftype.Width()
	}
	return size
}

// equals compares two TupleDescs positionally by type only; names are
// ignored.
func (td *TupleDesc) equals(other *TupleDesc) bool {
	if len(td.Fields) != len(other.Fields) {
		return false
	}
	for i := range td.Fields {
		if td.Fields[i].Ftype != other.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// findFieldInTd finds the best matching field in desc for field. A match
// requires the same Ftype (or field.Ftype == UnknownType) and the same
// name, preferring a TableQualifier match when field specifies one.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname == field.Fname && (f.Ftype == field.Ftype || field.Ftype == UnknownType) {
			if field.TableQualifier == "" && best != -1 {
				return 0, newError(AmbiguousNameError, "select name %s is ambiguous", f.Fname)
			}
			if f.TableQualifier == field.TableQualifier || best == -1 {
				best = i
			}
		}
	}
	if best != -1 {
		return best, nil
	}
	return -1, newError(IncompatibleTypesError, "field %s.%s not found", field.TableQualifier, field.Fname)
}

// copy makes an independent copy of a TupleDesc.
func (td *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

// setTableAlias assigns the TableQualifier of every field to alias.
func (td *TupleDesc) setTableAlias(alias string) {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	for i := range fields {
		fields[i].TableQualifier = alias
	}
	td.Fields = fields
}

// Merge concatenates the fields of desc2 onto the fields of td, returning a
// new TupleDesc.
func (td *TupleDesc) Merge(desc2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(td.Fields)+len(desc2.Fields))
	fields = append(fields, td.Fields...)
	fields = append(fields, desc2.Fields...)
	return &TupleDesc{Fields: fields}
}

// HeaderString renders a table header for this schema. aligned selects a
// padded tabular layout over a comma-separated one.
func (td *TupleDesc) HeaderString(aligned bool) string {
	outstr := ""
	for i, f := range td.Fields {
		tableName := ""
		if f.TableQualifier != "" {
			tableName = f.TableQualifier + "."
		}
		if aligned {
			outstr = fmt.Sprintf("%s %s", outstr, fmtCol(tableName+f.Fname, len(td.Fields)))
		} else {
			sep := ","
			if i == 0 {
				sep = ""
			}
			outstr = fmt.Sprintf("%s%s%s", outstr, sep, tableName+f.Fname)
		}
	}
	return outstr
}

// ================== Field values ======================

// DBValue is the interface implemented by field values. EvalPred compares
// the receiver against v using op.
type DBValue interface {
	EvalPred(v DBValue, op BoolOp) bool
}

// IntField is a 32-bit signed integer field value.
type IntField struct {
	Value int32
}

// StringField is a field value holding up to StringLength() bytes of UTF-8
// text; longer values are an error at write time, not silently truncated.
type StringField struct {
	Value string
}

func (f IntField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(IntField)
	if !ok {
		return false
	}
	return evalIntPred(f.Value, other.Value, op)
}

func (f StringField) EvalPred(v DBValue, op BoolOp) bool {
	other, ok := v.(StringField)
	if !ok {
		return false
	}
	return evalStringPred(f.Value, other.Value, op)
}

func evalIntPred(a, b int32, op BoolOp) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	default:
		return false
	}
}

func evalStringPred(a, b string, op BoolOp) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpLike:
		return strings.Contains(a, b)
	default:
		return false
	}
}

// ================== RecordID ======================

// RecordID identifies a tuple's home slot: the page it lives on and its
// slot index within that page. It is assigned when a tuple is inserted and
// invalidated (by convention: left pointing at a now-free slot) when the
// tuple is deleted.
type RecordID struct {
	PID      PageID
	TupleNum int
}

// ================== Tuple ======================

// Tuple is a row valued per a TupleDesc, optionally carrying the RecordID
// of its home slot.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

// writeIntField serializes an IntField as 4 big-endian bytes.
func writeIntField(b *bytes.Buffer, f IntField) error {
	return binary.Write(b, binary.BigEndian, f.Value)
}

// writeStringField serializes a StringField as a 4-byte big-endian length
// prefix followed by StringLength() bytes of payload, zero-padded.
func writeStringField(b *bytes.Buffer, f StringField) error {
	payload := []byte(f.Value)
	if len(payload) > StringLength() {
		return newError(TypeMismatchError, "string field value %q exceeds StringLength %d", f.Value, StringLength())
	}
	if err := binary.Write(b, binary.BigEndian, int32(len(payload))); err != nil {
		return err
	}
	padded := make([]byte, StringLength())
	copy(padded, payload)
	_, err := b.Write(padded)
	return err
}

// writeTo serializes the tuple's fields, in order, into b.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		switch v := field.(type) {
		case IntField:
			if err := writeIntField(b, v); err != nil {
				return err
			}
		case StringField:
			if err := writeStringField(b, v); err != nil {
				return err
			}
		default:
			return newError(TypeMismatchError, "unsupported field type %T", field)
		}
	}
	return nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int32
	if err := binary.Read(b, binary.BigEndian, &v); err != nil {
		return IntField{}, newError(FormatError, "reading int field: %v", err)
	}
	return IntField{Value: v}, nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	var length int32
	if err := binary.Read(b, binary.BigEndian, &length); err != nil {
		return StringField{}, newError(FormatError, "reading string field length: %v", err)
	}
	if length < 0 || int(length) > StringLength() {
		return StringField{}, newError(FormatError, "string field length %d out of range [0,%d]", length, StringLength())
	}
	payload := make([]byte, StringLength())
	if _, err := b.Read(payload); err != nil {
		return StringField{}, newError(FormatError, "reading string field payload: %v", err)
	}
	return StringField{Value: string(payload[:length])}, nil
}

// readTupleFrom deserializes one tuple of the given schema from b.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	tuple := &Tuple{Desc: *desc, Fields: make([]DBValue, 0, len(desc.Fields))}
	for _, fd := range desc.Fields {
		switch fd.Ftype {
		case StringType:
			f, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			tuple.Fields = append(tuple.Fields, f)
		default:
			f, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			tuple.Fields = append(tuple.Fields, f)
		}
	}
	return tuple, nil
}

// equals compares two tuples for equality: equal TupleDescs and equal
// fields, positionally.
func (t *Tuple) equals(other *Tuple) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.Desc.equals(&other.Desc) {
		return false
	}
	if len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

// joinTuples merges the fields of t1 and t2, producing a new tuple whose
// TupleDesc is the merge of both inputs'.
func joinTuples(t1, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	desc := t1.Desc.Merge(&t2.Desc)
	fields := make([]DBValue, 0, len(t1.Fields)+len(t2.Fields))
	fields = append(fields, t1.Fields...)
	fields = append(fields, t2.Fields...)
	return &Tuple{Desc: *desc, Fields: fields}
}

type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// compareField evaluates field on t and t2 and reports their relative order.
func (t *Tuple) compareField(t2 *Tuple, field Expr) (orderByState, error) {
	v1, err := field.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	v2, err := field.EvalExpr(t2)
	if err != nil {
		return OrderedEqual, err
	}
	switch {
	case v1.EvalPred(v2, OpEq):
		return OrderedEqual, nil
	case v1.EvalPred(v2, OpLt):
		return OrderedLessThan, nil
	default:
		return OrderedGreaterThan, nil
	}
}

// project returns a new Tuple containing just the named fields. A field
// with no TableQualifier matches a field of that name whatever its
// qualifier; if more than one field matches, it is AmbiguousNameError.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	projected := &Tuple{Desc: TupleDesc{}, Fields: []DBValue{}}
	for _, field := range fields {
		idx, err := findFieldInTd(field, &t.Desc)
		if err != nil {
			return nil, err
		}
		projected.Fields = append(projected.Fields, t.Fields[idx])
		projected.Desc.Fields = append(projected.Desc.Fields, t.Desc.Fields[idx])
	}
	return projected, nil
}

// tupleKey computes a key suitable for use in a map, e.g. for distinct
// projection.
func (t *Tuple) tupleKey() any {
	var buf bytes.Buffer
	t.writeTo(&buf)
	return buf.String()
}

var winWidth = 120

func fmtCol(v string, ncols int) string {
	colWid := winWidth / ncols
	nextLen := len(v) + 3
	remLen := colWid - nextLen
	if remLen > 0 {
		spacesRight := remLen / 2
		spacesLeft := remLen - spacesRight
		return strings.Repeat(" ", spacesLeft) + v + strings.Repeat(" ", spacesRight) + " |"
	}
	if colWid-4 < 0 || colWid-4 > len(v) {
		return " " + v + " |"
	}
	return " " + v[0:colWid-4] + " |"
}

// PrettyPrintString renders the tuple's values. aligned selects a padded
// tabular layout over a comma-separated one.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	outstr := ""
	for i, f := range t.Fields {
		str := ""
		switch f := f.(type) {
		case IntField:
			str = strconv.FormatInt(int64(f.Value), 10)
		case StringField:
			str = f.Value
		}
		if aligned {
			outstr = fmt.Sprintf("%s %s", outstr, fmtCol(str, len(t.Fields)))
		} else {
			sep := ","
			if i == 0 {
				sep = ""
			}
			outstr = fmt.Sprintf("%s%s%s", outstr, sep, str)
		}
	}
	return outstr
}
