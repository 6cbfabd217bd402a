package db

// BoolOp is a comparison operator defined on compatible field types. LIKE is
// defined only on STRING and means substring containment.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNeq
	OpGt
	OpGe
	OpLt
	OpLe
	OpLike
)

// Expr is an expression that can be evaluated against a tuple to produce a
// DBValue. In most of the engine it is a FieldExpr extracting a named field,
// but operators like Filter, Project and OrderBy are written against the
// interface so they compose with richer expressions later.
type Expr interface {
	// EvalExpr evaluates the expression against t.
	EvalExpr(t *Tuple) (DBValue, error)
	// GetExprType returns the FieldType the expression produces, used to
	// build an operator's output TupleDesc without evaluating a tuple.
	GetExprType() FieldType
}

// FieldExpr extracts a single named field from a tuple.
type FieldExpr struct {
	Field FieldType
}

func (e FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := findFieldInTd(e.Field, &t.Desc)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

func (e FieldExpr) GetExprType() FieldType {
	return e.Field
}

// ConstExpr evaluates to a fixed value regardless of the tuple supplied.
type ConstExpr struct {
	Value DBValue
	Ftype DBType
}

func (e ConstExpr) EvalExpr(t *Tuple) (DBValue, error) {
	return e.Value, nil
}

func (e ConstExpr) GetExprType() FieldType {
	return FieldType{Fname: "", Ftype: e.Ftype}
}
