package db

// Filter passes through only the child tuples satisfying left `op` right.
type Filter struct {
	op    BoolOp
	left  Expr
	right Expr
	child Operator

	open bool
	next *Tuple
}

// NewFilter constructs a filter comparing field against constExpr using op.
func NewFilter(constExpr Expr, op BoolOp, field Expr, child Operator) (*Filter, error) {
	return &Filter{op: op, left: field, right: constExpr, child: child}, nil
}

func (f *Filter) TupleDesc() *TupleDesc {
	return f.child.TupleDesc()
}

func (f *Filter) Open(tid TransactionID) error {
	if err := f.child.Open(tid); err != nil {
		return err
	}
	f.open = true
	f.next = nil
	return nil
}

func (f *Filter) HasNext() (bool, error) {
	if !f.open {
		return false, nil
	}
	if f.next != nil {
		return true, nil
	}
	for {
		ok, err := f.child.HasNext()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		t, err := f.child.Next()
		if err != nil {
			return false, err
		}

		leftVal, err := f.left.EvalExpr(t)
		if err != nil {
			return false, err
		}
		rightVal, err := f.right.EvalExpr(t)
		if err != nil {
			return false, err
		}
		if leftVal.EvalPred(rightVal, f.op) {
			f.next = t
			return true, nil
		}
	}
}

func (f *Filter) Next() (*Tuple, error) {
	ok, err := f.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(NoSuchElementError, "Filter: no more tuples")
	}
	t := f.next
	f.next = nil
	return t, nil
}

func (f *Filter) Rewind() error {
	if err := f.child.Rewind(); err != nil {
		return err
	}
	f.next = nil
	return nil
}

func (f *Filter) Close() error {
	f.open = false
	f.next = nil
	return f.child.Close()
}

func (f *Filter) Children() []Operator              { return []Operator{f.child} }
func (f *Filter) SetChildren(children []Operator)   { f.child = children[0] }

var _ Operator = (*Filter)(nil)
