package db

import "golang.org/x/exp/slices"

// OrderBy is a blocking sort: on Open it drains its child fully, sorts the
// result in memory by the given fields/directions, and serves the sorted
// list one tuple per Next call.
type OrderBy struct {
	orderBy   []Expr
	ascending []bool
	child     Operator

	open bool
	rows []*Tuple
	pos  int
}

// NewOrderBy constructs a sort over child by orderByFields, where
// ascending[i] selects ascending (true) or descending (false) order for
// orderByFields[i]; ties are broken by the next field in the list.
func NewOrderBy(orderByFields []Expr, child Operator, ascending []bool) (*OrderBy, error) {
	return &OrderBy{orderBy: orderByFields, ascending: ascending, child: child}, nil
}

func (o *OrderBy) TupleDesc() *TupleDesc {
	return o.child.TupleDesc()
}

func (o *OrderBy) Open(tid TransactionID) error {
	if err := o.child.Open(tid); err != nil {
		return err
	}
	o.rows = o.rows[:0]
	for {
		ok, err := o.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := o.child.Next()
		if err != nil {
			return err
		}
		o.rows = append(o.rows, t)
	}
	slices.SortFunc(o.rows, func(a, b *Tuple) int {
		return compareByFields(a, b, o.orderBy, o.ascending)
	})
	o.pos = 0
	o.open = true
	return nil
}

func (o *OrderBy) HasNext() (bool, error) {
	return o.open && o.pos < len(o.rows), nil
}

func (o *OrderBy) Next() (*Tuple, error) {
	ok, _ := o.HasNext()
	if !ok {
		return nil, newError(NoSuchElementError, "OrderBy: no more tuples")
	}
	t := o.rows[o.pos]
	o.pos++
	return t, nil
}

func (o *OrderBy) Rewind() error {
	o.pos = 0
	return nil
}

func (o *OrderBy) Close() error {
	o.open = false
	o.rows = nil
	return o.child.Close()
}

func (o *OrderBy) Children() []Operator            { return []Operator{o.child} }
func (o *OrderBy) SetChildren(children []Operator) { o.child = children[0] }

var _ Operator = (*OrderBy)(nil)

// compareByFields orders a against b by orderBy fields in turn, breaking
// ties with the next field; ascending[i] selects the direction for
// orderBy[i]. Returns <0, 0, or >0 per the slices.SortFunc convention.
func compareByFields(a, b *Tuple, orderBy []Expr, ascending []bool) int {
	for i, expr := range orderBy {
		valA, errA := expr.EvalExpr(a)
		valB, errB := expr.EvalExpr(b)
		if errA != nil || errB != nil {
			continue
		}
		if valA.EvalPred(valB, OpEq) {
			continue
		}
		less := valA.EvalPred(valB, OpLt)
		if !ascending[i] {
			less = !less
		}
		if less {
			return -1
		}
		return 1
	}
	return 0
}
