package db

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type intGroupState struct {
	gVal     DBValue
	sum      int64
	count    int64
	min      int32
	max      int32
	sumCount int64
	started  bool
}

// IntegerAggregator computes MIN, MAX, SUM, COUNT, AVG, SUM_COUNT or SC_AVG
// over an integer field, grouped by the textual form of an (optional)
// group field.
type IntegerAggregator struct {
	afield, gfield int
	aFieldName     string
	gFieldType     *FieldType
	op             AggType

	groups map[string]*intGroupState
}

// NewIntegerAggregator constructs an integer aggregator over afield,
// grouped by gfield (NoGrouping for a single group). aFieldName and
// gFieldType are the corresponding child field names/types, used only to
// build the output schema.
func NewIntegerAggregator(afield, gfield int, aFieldName string, gFieldType *FieldType, op AggType) *IntegerAggregator {
	return &IntegerAggregator{
		afield:     afield,
		gfield:     gfield,
		aFieldName: aFieldName,
		gFieldType: gFieldType,
		op:         op,
		groups:     make(map[string]*intGroupState),
	}
}

func (a *IntegerAggregator) groupOf(t *Tuple) (string, DBValue, error) {
	if a.gfield == NoGrouping {
		return "", nil, nil
	}
	if a.gfield < 0 || a.gfield >= len(t.Fields) {
		return "", nil, newError(TupleMismatchError, "group field %d out of range", a.gfield)
	}
	gVal := t.Fields[a.gfield]
	return groupKeyOf(gVal), gVal, nil
}

// Merge folds t into its group's running state.
func (a *IntegerAggregator) Merge(t *Tuple) error {
	if a.afield < 0 || a.afield >= len(t.Fields) {
		return newError(TupleMismatchError, "aggregate field %d out of range", a.afield)
	}
	val, ok := t.Fields[a.afield].(IntField)
	if !ok {
		return newError(TypeMismatchError, "IntegerAggregator: field %d is not an int", a.afield)
	}

	key, gVal, err := a.groupOf(t)
	if err != nil {
		return err
	}

	state, exists := a.groups[key]
	if !exists {
		state = &intGroupState{gVal: gVal}
		a.groups[key] = state
	}

	if !state.started {
		state.min, state.max = val.Value, val.Value
		state.started = true
	} else {
		if val.Value < state.min {
			state.min = val.Value
		}
		if val.Value > state.max {
			state.max = val.Value
		}
	}
	state.sum += int64(val.Value)
	state.count++

	if a.op == ScAvg {
		if a.afield+1 >= len(t.Fields) {
			return newError(AggregateError, "SC_AVG requires a count field at afield+1")
		}
		cnt, ok := t.Fields[a.afield+1].(IntField)
		if !ok {
			return newError(TypeMismatchError, "SC_AVG: field %d is not an int", a.afield+1)
		}
		state.sumCount += int64(cnt.Value)
	}

	return nil
}

// TupleDesc returns the output schema for the configured op and grouping.
func (a *IntegerAggregator) TupleDesc() *TupleDesc {
	var fields []FieldType
	if a.gFieldType != nil {
		fields = append(fields, *a.gFieldType)
	}
	switch a.op {
	case SumCountAgg:
		fields = append(fields,
			FieldType{Fname: fmt.Sprintf("SUM(%s)", a.aFieldName), Ftype: IntType},
			FieldType{Fname: fmt.Sprintf("COUNT(%s)", a.aFieldName), Ftype: IntType},
		)
	default:
		fields = append(fields, FieldType{Fname: fmt.Sprintf("%s(%s)", a.op, a.aFieldName), Ftype: IntType})
	}
	return &TupleDesc{Fields: fields}
}

// Iterator finalizes every group into a result tuple and returns a fresh
// operator over them. Group keys are sorted before finalizing: Go's map
// iteration order is randomized per run, and a given Iterator() call (and
// any subsequent Rewind) must reproduce the same order within a process,
// not just the same contents.
func (a *IntegerAggregator) Iterator() (Operator, error) {
	desc := a.TupleDesc()
	keys := maps.Keys(a.groups)
	slices.Sort(keys)

	rows := make([]*Tuple, 0, len(keys))
	for _, key := range keys {
		row, err := a.finalize(*desc, a.groups[key])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return newAggResultIter(desc, rows), nil
}

func (a *IntegerAggregator) finalize(desc TupleDesc, state *intGroupState) (*Tuple, error) {
	var fields []DBValue
	if a.gFieldType != nil {
		fields = append(fields, state.gVal)
	}

	switch a.op {
	case MinAgg:
		fields = append(fields, IntField{Value: state.min})
	case MaxAgg:
		fields = append(fields, IntField{Value: state.max})
	case SumAgg:
		fields = append(fields, IntField{Value: int32(state.sum)})
	case CountAgg:
		fields = append(fields, IntField{Value: int32(state.count)})
	case AvgAgg:
		if state.count == 0 {
			return nil, newError(AggregateError, "AVG: division by zero")
		}
		fields = append(fields, IntField{Value: int32(state.sum / state.count)})
	case SumCountAgg:
		fields = append(fields, IntField{Value: int32(state.sum)}, IntField{Value: int32(state.count)})
	case ScAvg:
		if state.sumCount == 0 {
			return nil, newError(AggregateError, "SC_AVG: division by zero")
		}
		fields = append(fields, IntField{Value: int32(state.sum / state.sumCount)})
	default:
		return nil, newError(InvalidAggregateOp, "IntegerAggregator: unsupported op %s", a.op)
	}

	return &Tuple{Desc: desc, Fields: fields}, nil
}

var _ Aggregator = (*IntegerAggregator)(nil)
