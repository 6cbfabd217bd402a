package db

import "golang.org/x/exp/slices"

// EqualityJoin is a sort-merge equi-join: it fully drains and sorts both
// children by their join field, then merges the two sorted runs, so it does
// not pay a nested-loop's O(n*m) cost for large inputs.
type EqualityJoin struct {
	leftField, rightField Expr
	left, right           Operator

	open bool
	rows []*Tuple
	pos  int
}

// NewJoin constructs an equi-join of left (keyed by leftField) with right
// (keyed by rightField). Both fields must share a type.
func NewJoin(left Operator, leftField Expr, right Operator, rightField Expr, maxBufferSize int) (*EqualityJoin, error) {
	if leftField.GetExprType().Ftype != rightField.GetExprType().Ftype {
		return nil, newError(TypeMismatchError, "NewJoin: join fields have different types")
	}
	return &EqualityJoin{leftField: leftField, rightField: rightField, left: left, right: right}, nil
}

func (hj *EqualityJoin) TupleDesc() *TupleDesc {
	return hj.left.TupleDesc().Merge(hj.right.TupleDesc())
}

func (hj *EqualityJoin) Open(tid TransactionID) error {
	if err := hj.left.Open(tid); err != nil {
		return err
	}
	if err := hj.right.Open(tid); err != nil {
		return err
	}

	leftTuples, err := drain(hj.left)
	if err != nil {
		return err
	}
	rightTuples, err := drain(hj.right)
	if err != nil {
		return err
	}

	sortByField(leftTuples, hj.leftField)
	sortByField(rightTuples, hj.rightField)

	hj.rows = mergeAndJoinTuples(leftTuples, rightTuples, hj.leftField, hj.rightField)
	hj.pos = 0
	hj.open = true
	return nil
}

func drain(op Operator) ([]*Tuple, error) {
	var rows []*Tuple
	for {
		ok, err := op.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		t, err := op.Next()
		if err != nil {
			return nil, err
		}
		rows = append(rows, t)
	}
}

func sortByField(tuples []*Tuple, field Expr) {
	slices.SortFunc(tuples, func(a, b *Tuple) int {
		state, err := a.compareField(b, field)
		if err != nil {
			return 0
		}
		return int(state) - int(OrderedEqual)
	})
}

func (hj *EqualityJoin) HasNext() (bool, error) {
	return hj.open && hj.pos < len(hj.rows), nil
}

func (hj *EqualityJoin) Next() (*Tuple, error) {
	ok, _ := hj.HasNext()
	if !ok {
		return nil, newError(NoSuchElementError, "EqualityJoin: no more tuples")
	}
	t := hj.rows[hj.pos]
	hj.pos++
	return t, nil
}

func (hj *EqualityJoin) Rewind() error {
	hj.pos = 0
	return nil
}

func (hj *EqualityJoin) Close() error {
	hj.open = false
	hj.rows = nil
	if err := hj.left.Close(); err != nil {
		return err
	}
	return hj.right.Close()
}

func (hj *EqualityJoin) Children() []Operator { return []Operator{hj.left, hj.right} }
func (hj *EqualityJoin) SetChildren(children []Operator) {
	hj.left, hj.right = children[0], children[1]
}

var _ Operator = (*EqualityJoin)(nil)

func mergeAndJoinTuples(leftTuples, rightTuples []*Tuple, leftField, rightField Expr) []*Tuple {
	var joined []*Tuple
	li, ri := 0, 0

	for li < len(leftTuples) && ri < len(rightTuples) {
		order, err := compareAcross(leftTuples[li], rightTuples[ri], leftField, rightField)
		if err != nil {
			break
		}
		switch order {
		case OrderedEqual:
			lEnd := findEqualRange(leftTuples, li, leftField)
			rEnd := findEqualRange(rightTuples, ri, rightField)
			for i := li; i < lEnd; i++ {
				for j := ri; j < rEnd; j++ {
					joined = append(joined, joinTuples(leftTuples[i], rightTuples[j]))
				}
			}
			li, ri = lEnd, rEnd
		case OrderedLessThan:
			li++
		case OrderedGreaterThan:
			ri++
		}
	}
	return joined
}

func compareAcross(left, right *Tuple, leftField, rightField Expr) (orderByState, error) {
	leftVal, err := leftField.EvalExpr(left)
	if err != nil {
		return 0, err
	}
	rightVal, err := rightField.EvalExpr(right)
	if err != nil {
		return 0, err
	}
	switch {
	case leftVal.EvalPred(rightVal, OpLt):
		return OrderedLessThan, nil
	case leftVal.EvalPred(rightVal, OpGt):
		return OrderedGreaterThan, nil
	default:
		return OrderedEqual, nil
	}
}

// findEqualRange returns the end (exclusive) of the run starting at
// startIndex whose values under field equal that at startIndex.
func findEqualRange(tuples []*Tuple, startIndex int, field Expr) int {
	end := startIndex + 1
	for end < len(tuples) {
		state, err := tuples[end].compareField(tuples[startIndex], field)
		if err != nil || state != OrderedEqual {
			break
		}
		end++
	}
	return end
}
