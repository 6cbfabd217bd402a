package db

// InsertOp inserts every tuple produced by its child into insertFile,
// emitting a single "count" tuple once the child is drained.
type InsertOp struct {
	insertFile DBFile
	child      Operator
	desc       *TupleDesc

	open bool
	done bool
	tid  TransactionID
}

// NewInsertOp constructs an insert of child's tuples into insertFile.
func NewInsertOp(insertFile DBFile, child Operator) *InsertOp {
	return &InsertOp{
		insertFile: insertFile,
		child:      child,
		desc:       &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (iop *InsertOp) TupleDesc() *TupleDesc {
	return iop.desc
}

func (iop *InsertOp) Open(tid TransactionID) error {
	if err := iop.child.Open(tid); err != nil {
		return err
	}
	iop.tid = tid
	iop.open = true
	iop.done = false
	return nil
}

func (iop *InsertOp) HasNext() (bool, error) {
	return iop.open && !iop.done, nil
}

func (iop *InsertOp) Next() (*Tuple, error) {
	if ok, err := iop.HasNext(); err != nil || !ok {
		return nil, newError(NoSuchElementError, "InsertOp: already produced its count tuple")
	}

	var count int32
	for {
		ok, err := iop.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		t, err := iop.child.Next()
		if err != nil {
			return nil, err
		}
		if _, err := iop.insertFile.InsertTuple(t, iop.tid); err != nil {
			return nil, err
		}
		count++
	}

	iop.done = true
	return &Tuple{Desc: *iop.desc, Fields: []DBValue{IntField{Value: count}}}, nil
}

func (iop *InsertOp) Rewind() error {
	if err := iop.child.Rewind(); err != nil {
		return err
	}
	iop.done = false
	return nil
}

func (iop *InsertOp) Close() error {
	iop.open = false
	return iop.child.Close()
}

func (iop *InsertOp) Children() []Operator            { return []Operator{iop.child} }
func (iop *InsertOp) SetChildren(children []Operator) { iop.child = children[0] }

var _ Operator = (*InsertOp)(nil)
