package db

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type stringGroupState struct {
	gVal  DBValue
	count int64
}

// StringAggregator computes COUNT over a string field, grouped by the
// textual form of an (optional) group field. COUNT is the only op a string
// aggregator supports; any other op fails at construction with
// InvalidAggregateOp.
type StringAggregator struct {
	afield, gfield int
	aFieldName     string
	gFieldType     *FieldType

	groups map[string]*stringGroupState
}

// NewStringAggregator constructs a string COUNT aggregator over afield,
// grouped by gfield (NoGrouping for a single group). Returns
// InvalidAggregateOp if op is anything other than CountAgg.
func NewStringAggregator(afield, gfield int, aFieldName string, gFieldType *FieldType, op AggType) (*StringAggregator, error) {
	if op != CountAgg {
		return nil, newError(InvalidAggregateOp, "StringAggregator: %s is not supported, only COUNT", op)
	}
	return &StringAggregator{
		afield:     afield,
		gfield:     gfield,
		aFieldName: aFieldName,
		gFieldType: gFieldType,
		groups:     make(map[string]*stringGroupState),
	}, nil
}

func (a *StringAggregator) groupOf(t *Tuple) (string, DBValue, error) {
	if a.gfield == NoGrouping {
		return "", nil, nil
	}
	if a.gfield < 0 || a.gfield >= len(t.Fields) {
		return "", nil, newError(TupleMismatchError, "group field %d out of range", a.gfield)
	}
	gVal := t.Fields[a.gfield]
	return groupKeyOf(gVal), gVal, nil
}

// Merge folds t into its group's running count.
func (a *StringAggregator) Merge(t *Tuple) error {
	if a.afield < 0 || a.afield >= len(t.Fields) {
		return newError(TupleMismatchError, "aggregate field %d out of range", a.afield)
	}
	if _, ok := t.Fields[a.afield].(StringField); !ok {
		return newError(TypeMismatchError, "StringAggregator: field %d is not a string", a.afield)
	}

	key, gVal, err := a.groupOf(t)
	if err != nil {
		return err
	}

	state, exists := a.groups[key]
	if !exists {
		state = &stringGroupState{gVal: gVal}
		a.groups[key] = state
	}
	state.count++
	return nil
}

// TupleDesc returns the output schema: the group field (if grouping)
// followed by a single COUNT(field) int column.
func (a *StringAggregator) TupleDesc() *TupleDesc {
	var fields []FieldType
	if a.gFieldType != nil {
		fields = append(fields, *a.gFieldType)
	}
	fields = append(fields, FieldType{Fname: fmt.Sprintf("COUNT(%s)", a.aFieldName), Ftype: IntType})
	return &TupleDesc{Fields: fields}
}

// Iterator finalizes every group into a result tuple and returns a fresh
// operator over them. Keys are sorted for the same reason as
// IntegerAggregator.Iterator: map iteration order is not stable across
// calls within a process.
func (a *StringAggregator) Iterator() (Operator, error) {
	desc := a.TupleDesc()
	keys := maps.Keys(a.groups)
	slices.Sort(keys)

	rows := make([]*Tuple, 0, len(keys))
	for _, key := range keys {
		state := a.groups[key]
		var fields []DBValue
		if a.gFieldType != nil {
			fields = append(fields, state.gVal)
		}
		fields = append(fields, IntField{Value: int32(state.count)})
		rows = append(rows, &Tuple{Desc: *desc, Fields: fields})
	}
	return newAggResultIter(desc, rows), nil
}

var _ Aggregator = (*StringAggregator)(nil)
