package db

// DeleteOp deletes every tuple produced by its child from deleteFile,
// emitting a single "count" tuple once the child is drained.
type DeleteOp struct {
	deleteFile DBFile
	child      Operator
	desc       *TupleDesc

	open bool
	done bool
	tid  TransactionID
}

// NewDeleteOp constructs a delete of child's tuples from deleteFile.
func NewDeleteOp(deleteFile DBFile, child Operator) *DeleteOp {
	return &DeleteOp{
		deleteFile: deleteFile,
		child:      child,
		desc:       &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (dop *DeleteOp) TupleDesc() *TupleDesc {
	return dop.desc
}

func (dop *DeleteOp) Open(tid TransactionID) error {
	if err := dop.child.Open(tid); err != nil {
		return err
	}
	dop.tid = tid
	dop.open = true
	dop.done = false
	return nil
}

func (dop *DeleteOp) HasNext() (bool, error) {
	return dop.open && !dop.done, nil
}

func (dop *DeleteOp) Next() (*Tuple, error) {
	if ok, err := dop.HasNext(); err != nil || !ok {
		return nil, newError(NoSuchElementError, "DeleteOp: already produced its count tuple")
	}

	var count int32
	for {
		ok, err := dop.child.HasNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		t, err := dop.child.Next()
		if err != nil {
			return nil, err
		}
		if _, err := dop.deleteFile.DeleteTuple(t, dop.tid); err != nil {
			return nil, err
		}
		count++
	}

	dop.done = true
	return &Tuple{Desc: *dop.desc, Fields: []DBValue{IntField{Value: count}}}, nil
}

func (dop *DeleteOp) Rewind() error {
	if err := dop.child.Rewind(); err != nil {
		return err
	}
	dop.done = false
	return nil
}

func (dop *DeleteOp) Close() error {
	dop.open = false
	return dop.child.Close()
}

func (dop *DeleteOp) Children() []Operator            { return []Operator{dop.child} }
func (dop *DeleteOp) SetChildren(children []Operator) { dop.child = children[0] }

var _ Operator = (*DeleteOp)(nil)
