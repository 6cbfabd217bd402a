package db

// LimitOp passes through at most the first N tuples of its child, where N
// is the (constant) evaluation of limitTups.
type LimitOp struct {
	child     Operator
	limitTups Expr

	open  bool
	limit int
	count int
	next  *Tuple
}

// NewLimitOp constructs a limit of lim tuples over child.
func NewLimitOp(lim Expr, child Operator) *LimitOp {
	return &LimitOp{child: child, limitTups: lim}
}

func (l *LimitOp) TupleDesc() *TupleDesc {
	return l.child.TupleDesc()
}

func (l *LimitOp) Open(tid TransactionID) error {
	if err := l.child.Open(tid); err != nil {
		return err
	}
	v, err := l.limitTups.EvalExpr(nil)
	if err != nil {
		return err
	}
	iv, ok := v.(IntField)
	if !ok {
		return newError(TypeMismatchError, "LimitOp: limit expression is not an int")
	}
	l.limit = int(iv.Value)
	l.count = 0
	l.open = true
	l.next = nil
	return nil
}

func (l *LimitOp) HasNext() (bool, error) {
	if !l.open || l.count >= l.limit {
		return false, nil
	}
	if l.next != nil {
		return true, nil
	}
	ok, err := l.child.HasNext()
	if err != nil || !ok {
		return false, err
	}
	t, err := l.child.Next()
	if err != nil {
		return false, err
	}
	l.next = t
	return true, nil
}

func (l *LimitOp) Next() (*Tuple, error) {
	ok, err := l.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(NoSuchElementError, "LimitOp: no more tuples")
	}
	t := l.next
	l.next = nil
	l.count++
	return t, nil
}

func (l *LimitOp) Rewind() error {
	if err := l.child.Rewind(); err != nil {
		return err
	}
	l.count = 0
	l.next = nil
	return nil
}

func (l *LimitOp) Close() error {
	l.open = false
	l.next = nil
	return l.child.Close()
}

func (l *LimitOp) Children() []Operator            { return []Operator{l.child} }
func (l *LimitOp) SetChildren(children []Operator) { l.child = children[0] }

var _ Operator = (*LimitOp)(nil)
