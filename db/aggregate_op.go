package db

import "strconv"

// NoGrouping is the gfield sentinel selecting scalar, single-group
// aggregation instead of a GROUP BY.
const NoGrouping = -1

// AggType names a supported aggregate operator.
type AggType int

const (
	MinAgg AggType = iota
	MaxAgg
	SumAgg
	CountAgg
	AvgAgg
	SumCountAgg
	ScAvg
)

func (op AggType) String() string {
	switch op {
	case MinAgg:
		return "MIN"
	case MaxAgg:
		return "MAX"
	case SumAgg:
		return "SUM"
	case CountAgg:
		return "COUNT"
	case AvgAgg:
		return "AVG"
	case SumCountAgg:
		return "SUM_COUNT"
	case ScAvg:
		return "SC_AVG"
	default:
		return "UNKNOWN_AGG"
	}
}

// Aggregator folds tuples into per-group state and, once merging is done,
// produces an operator over one finalized result tuple per group. Calling
// Iterator twice must yield two independent cursors over the same,
// unmodified contents: merging and reading are separate phases.
type Aggregator interface {
	Merge(t *Tuple) error
	TupleDesc() *TupleDesc
	Iterator() (Operator, error)
}

// groupKeyOf returns the textual group key for a group value: the field's
// textual form, independent of its DBType.
func groupKeyOf(v DBValue) string {
	switch f := v.(type) {
	case IntField:
		return strconv.FormatInt(int64(f.Value), 10)
	case StringField:
		return f.Value
	default:
		return ""
	}
}

// Aggregate drains its child fully into an Aggregator on the first Next,
// then serves the aggregator's finalized result tuples.
type Aggregate struct {
	child      Operator
	aggregator Aggregator

	open  bool
	built bool
	iter  Operator
	tid   TransactionID
}

// NewAggregator builds the Aggregate operator for aggOp over child's afield,
// grouped by gfield (or NoGrouping for a single group). The concrete
// Aggregator (Integer or String) is chosen from the child's schema.
func NewAggregator(afield, gfield int, aggOp AggType, child Operator) (*Aggregate, error) {
	td := child.TupleDesc()
	if afield < 0 || afield >= td.NumFields() {
		return nil, newError(TupleMismatchError, "aggregate field %d out of range", afield)
	}
	aFieldType := td.Fields[afield]

	var gFieldType *FieldType
	if gfield != NoGrouping {
		if gfield < 0 || gfield >= td.NumFields() {
			return nil, newError(TupleMismatchError, "group field %d out of range", gfield)
		}
		g := td.Fields[gfield]
		gFieldType = &g
	}

	var agg Aggregator
	switch aFieldType.Ftype {
	case IntType:
		agg = NewIntegerAggregator(afield, gfield, aFieldType.Fname, gFieldType, aggOp)
	case StringType:
		sa, err := NewStringAggregator(afield, gfield, aFieldType.Fname, gFieldType, aggOp)
		if err != nil {
			return nil, err
		}
		agg = sa
	default:
		return nil, newError(TypeMismatchError, "cannot aggregate field of unknown type")
	}

	return &Aggregate{child: child, aggregator: agg}, nil
}

func (a *Aggregate) TupleDesc() *TupleDesc {
	return a.aggregator.TupleDesc()
}

func (a *Aggregate) Open(tid TransactionID) error {
	if err := a.child.Open(tid); err != nil {
		return err
	}
	a.tid = tid
	a.open = true
	a.built = false
	a.iter = nil
	return nil
}

// ensureBuilt drains the child into the aggregator exactly once, then opens
// a fresh result iterator over the finalized groups.
func (a *Aggregate) ensureBuilt() error {
	if a.built {
		return nil
	}
	for {
		ok, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		if err := a.aggregator.Merge(t); err != nil {
			return err
		}
	}
	iter, err := a.aggregator.Iterator()
	if err != nil {
		return err
	}
	if err := iter.Open(a.tid); err != nil {
		return err
	}
	a.iter = iter
	a.built = true
	return nil
}

func (a *Aggregate) HasNext() (bool, error) {
	if !a.open {
		return false, nil
	}
	if err := a.ensureBuilt(); err != nil {
		return false, err
	}
	return a.iter.HasNext()
}

func (a *Aggregate) Next() (*Tuple, error) {
	ok, err := a.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(NoSuchElementError, "Aggregate: no more tuples")
	}
	return a.iter.Next()
}

// Rewind resets the result cursor without re-draining the child: the
// aggregator's state is already frozen, so a fresh Iterator() is cheap and
// independent of the one being replaced.
func (a *Aggregate) Rewind() error {
	if !a.built {
		return nil
	}
	iter, err := a.aggregator.Iterator()
	if err != nil {
		return err
	}
	if err := iter.Open(a.tid); err != nil {
		return err
	}
	a.iter = iter
	return nil
}

func (a *Aggregate) Close() error {
	a.open = false
	if a.iter != nil {
		a.iter.Close()
	}
	a.iter = nil
	return a.child.Close()
}

func (a *Aggregate) Children() []Operator            { return []Operator{a.child} }
func (a *Aggregate) SetChildren(children []Operator) { a.child = children[0] }

var _ Operator = (*Aggregate)(nil)

// aggResultIter is a closed-over, pre-computed list of result tuples served
// one at a time, used by both aggregators' Iterator() implementations.
type aggResultIter struct {
	rows []*Tuple
	desc *TupleDesc
	open bool
	pos  int
}

func newAggResultIter(desc *TupleDesc, rows []*Tuple) *aggResultIter {
	return &aggResultIter{desc: desc, rows: rows}
}

func (it *aggResultIter) TupleDesc() *TupleDesc { return it.desc }

func (it *aggResultIter) Open(tid TransactionID) error {
	it.open = true
	it.pos = 0
	return nil
}

func (it *aggResultIter) HasNext() (bool, error) {
	return it.open && it.pos < len(it.rows), nil
}

func (it *aggResultIter) Next() (*Tuple, error) {
	ok, _ := it.HasNext()
	if !ok {
		return nil, newError(NoSuchElementError, "aggregate result: no more tuples")
	}
	t := it.rows[it.pos]
	it.pos++
	return t, nil
}

func (it *aggResultIter) Rewind() error {
	it.pos = 0
	return nil
}

func (it *aggResultIter) Close() error {
	it.open = false
	return nil
}

func (it *aggResultIter) Children() []Operator     { return nil }
func (it *aggResultIter) SetChildren([]Operator)   {}

var _ Operator = (*aggResultIter)(nil)
