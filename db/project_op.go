package db

// Project evaluates a list of expressions against each child tuple,
// renaming the results per outputNames. With distinct set, it suppresses
// tuples whose projected values have already been emitted.
type Project struct {
	selectFields []Expr
	outputNames  []string
	distinct     bool
	child        Operator

	desc     *TupleDesc
	open     bool
	seen     map[any]struct{}
	next     *Tuple
}

// NewProjectOp constructs a projection of selectFields, renamed to
// outputNames (must be the same length), over child.
func NewProjectOp(selectFields []Expr, outputNames []string, distinct bool, child Operator) (Operator, error) {
	if len(selectFields) != len(outputNames) {
		return nil, newError(TupleMismatchError, "NewProjectOp: %d fields but %d names", len(selectFields), len(outputNames))
	}
	return &Project{
		selectFields: selectFields,
		outputNames:  outputNames,
		distinct:     distinct,
		child:        child,
	}, nil
}

func (p *Project) TupleDesc() *TupleDesc {
	if p.desc == nil {
		fields := make([]FieldType, len(p.selectFields))
		for i, e := range p.selectFields {
			ft := e.GetExprType()
			ft.Fname = p.outputNames[i]
			fields[i] = ft
		}
		p.desc = &TupleDesc{Fields: fields}
	}
	return p.desc
}

func (p *Project) Open(tid TransactionID) error {
	if err := p.child.Open(tid); err != nil {
		return err
	}
	p.open = true
	p.next = nil
	if p.distinct {
		p.seen = make(map[any]struct{})
	}
	return nil
}

func (p *Project) HasNext() (bool, error) {
	if !p.open {
		return false, nil
	}
	if p.next != nil {
		return true, nil
	}
	desc := *p.TupleDesc()
	for {
		ok, err := p.child.HasNext()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		t, err := p.child.Next()
		if err != nil {
			return false, err
		}

		out := &Tuple{Desc: desc, Fields: make([]DBValue, len(p.selectFields))}
		for i, e := range p.selectFields {
			v, err := e.EvalExpr(t)
			if err != nil {
				return false, err
			}
			out.Fields[i] = v
		}

		if p.distinct {
			key := out.tupleKey()
			if _, dup := p.seen[key]; dup {
				continue
			}
			p.seen[key] = struct{}{}
		}

		p.next = out
		return true, nil
	}
}

func (p *Project) Next() (*Tuple, error) {
	ok, err := p.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(NoSuchElementError, "Project: no more tuples")
	}
	t := p.next
	p.next = nil
	return t, nil
}

func (p *Project) Rewind() error {
	if err := p.child.Rewind(); err != nil {
		return err
	}
	p.next = nil
	if p.distinct {
		p.seen = make(map[any]struct{})
	}
	return nil
}

func (p *Project) Close() error {
	p.open = false
	p.next = nil
	p.seen = nil
	return p.child.Close()
}

func (p *Project) Children() []Operator            { return []Operator{p.child} }
func (p *Project) SetChildren(children []Operator) { p.child = children[0] }

var _ Operator = (*Project)(nil)
