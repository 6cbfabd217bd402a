// Package query translates a restricted SQL surface into a heapdb operator
// tree. It is a driver concern: the core (github.com/turinglake/heapdb/db)
// never imports this package, and this package only ever builds operator
// trees out of db's public constructors.
package query

import (
	"fmt"
	"strconv"

	"github.com/xwb1989/sqlparser"

	"github.com/turinglake/heapdb/db"
)

// Plan is a compiled query: an operator tree whose leaf is a table scan and
// whose Root is the topmost operator, ready for Open/HasNext/Next/Close.
type Plan struct {
	Root db.Operator
}

// Compile parses sql (a single SELECT statement, optionally with WHERE,
// GROUP BY, a single aggregate function, ORDER BY, and LIMIT) and builds
// the corresponding operator tree against cat.
func Compile(sql string, cat *db.Catalog) (*Plan, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("query: parse error: %w", err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("query: only SELECT statements are supported")
	}
	return compileSelect(sel, cat)
}

func compileSelect(sel *sqlparser.Select, cat *db.Catalog) (*Plan, error) {
	if len(sel.From) != 1 {
		return nil, fmt.Errorf("query: only a single FROM table is supported")
	}
	tableName, err := fromTableName(sel.From[0])
	if err != nil {
		return nil, err
	}
	file, err := cat.GetTableByName(tableName)
	if err != nil {
		return nil, err
	}

	tid := db.NewTID()
	var root db.Operator = file.Scan(tid)

	if sel.Where != nil {
		root, err = compileWhere(sel.Where.Expr, root)
		if err != nil {
			return nil, err
		}
	}

	aggField, aggOp, groupField, err := findAggregate(sel.SelectExprs, sel.GroupBy, root.TupleDesc())
	if err != nil {
		return nil, err
	}
	if aggField != nil {
		root, err = db.NewAggregator(*aggField, groupField, *aggOp, root)
		if err != nil {
			return nil, err
		}
	} else {
		root, err = compileProject(sel.SelectExprs, root)
		if err != nil {
			return nil, err
		}
	}

	if len(sel.OrderBy) > 0 {
		root, err = compileOrderBy(sel.OrderBy, root)
		if err != nil {
			return nil, err
		}
	}

	if sel.Limit != nil && sel.Limit.Rowcount != nil {
		n, err := exprToConst(sel.Limit.Rowcount)
		if err != nil {
			return nil, err
		}
		root = db.NewLimitOp(n, root)
	}

	return &Plan{Root: root}, nil
}

func fromTableName(te sqlparser.TableExpr) (string, error) {
	aliased, ok := te.(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", fmt.Errorf("query: unsupported FROM expression %T", te)
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", fmt.Errorf("query: unsupported table expression %T", aliased.Expr)
	}
	return name.Name.CompliantName(), nil
}

// compileWhere supports a single top-level comparison between a column and
// a literal; conjunctions of more than one predicate are out of scope for
// this thin surface.
func compileWhere(expr sqlparser.Expr, child db.Operator) (db.Operator, error) {
	cmp, ok := expr.(*sqlparser.ComparisonExpr)
	if !ok {
		return nil, fmt.Errorf("query: only a single comparison WHERE clause is supported")
	}
	field, err := exprToFieldExpr(cmp.Left, child.TupleDesc())
	if err != nil {
		return nil, err
	}
	value, err := exprToConst(cmp.Right)
	if err != nil {
		return nil, err
	}
	op, err := boolOpOf(cmp.Operator)
	if err != nil {
		return nil, err
	}
	return db.NewFilter(value, op, field, child)
}

func boolOpOf(op string) (db.BoolOp, error) {
	switch op {
	case sqlparser.EqualStr:
		return db.OpEq, nil
	case sqlparser.NotEqualStr:
		return db.OpNeq, nil
	case sqlparser.LessThanStr:
		return db.OpLt, nil
	case sqlparser.LessEqualStr:
		return db.OpLe, nil
	case sqlparser.GreaterThanStr:
		return db.OpGt, nil
	case sqlparser.GreaterEqualStr:
		return db.OpGe, nil
	case sqlparser.LikeStr:
		return db.OpLike, nil
	default:
		return 0, fmt.Errorf("query: unsupported comparison operator %q", op)
	}
}

func exprToFieldExpr(e sqlparser.Expr, td *db.TupleDesc) (db.Expr, error) {
	col, ok := e.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("query: expected a column reference, got %T", e)
	}
	name := col.Name.CompliantName()
	for _, f := range td.Fields {
		if f.Fname == name {
			return db.FieldExpr{Field: f}, nil
		}
	}
	return nil, fmt.Errorf("query: unknown column %q", name)
}

func exprToConst(e sqlparser.Expr) (db.Expr, error) {
	val, ok := e.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("query: expected a literal, got %T", e)
	}
	switch val.Type {
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(val.Val), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("query: invalid integer literal %q: %w", val.Val, err)
		}
		return db.ConstExpr{Value: db.IntField{Value: int32(n)}, Ftype: db.IntType}, nil
	case sqlparser.StrVal:
		return db.ConstExpr{Value: db.StringField{Value: string(val.Val)}, Ftype: db.StringType}, nil
	default:
		return nil, fmt.Errorf("query: unsupported literal type %v", val.Type)
	}
}

// findAggregate reports the single supported aggregate call in the select
// list, if any, along with its operand field index and optional GROUP BY
// field index.
func findAggregate(exprs sqlparser.SelectExprs, groupBy sqlparser.GroupBy, td *db.TupleDesc) (*int, *db.AggType, int, error) {
	var aggFieldIdx *int
	var aggType *db.AggType

	for _, se := range exprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			continue
		}
		fn, ok := aliased.Expr.(*sqlparser.FuncExpr)
		if !ok {
			continue
		}
		op, err := aggTypeOf(fn.Name.Lowered())
		if err != nil {
			return nil, nil, db.NoGrouping, err
		}
		if len(fn.Exprs) != 1 {
			return nil, nil, db.NoGrouping, fmt.Errorf("query: aggregate functions take exactly one argument")
		}
		argAliased, ok := fn.Exprs[0].(*sqlparser.AliasedExpr)
		if !ok {
			return nil, nil, db.NoGrouping, fmt.Errorf("query: unsupported aggregate argument")
		}
		col, ok := argAliased.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, nil, db.NoGrouping, fmt.Errorf("query: aggregate argument must be a column")
		}
		idx, err := fieldIndex(td, col.Name.CompliantName())
		if err != nil {
			return nil, nil, db.NoGrouping, err
		}
		aggFieldIdx = &idx
		aggType = &op
	}

	if aggFieldIdx == nil {
		return nil, nil, db.NoGrouping, nil
	}

	groupField := db.NoGrouping
	if len(groupBy) == 1 {
		col, ok := groupBy[0].(*sqlparser.ColName)
		if !ok {
			return nil, nil, db.NoGrouping, fmt.Errorf("query: GROUP BY must reference a column")
		}
		idx, err := fieldIndex(td, col.Name.CompliantName())
		if err != nil {
			return nil, nil, db.NoGrouping, err
		}
		groupField = idx
	} else if len(groupBy) > 1 {
		return nil, nil, db.NoGrouping, fmt.Errorf("query: at most one GROUP BY column is supported")
	}

	return aggFieldIdx, aggType, groupField, nil
}

func aggTypeOf(name string) (db.AggType, error) {
	switch name {
	case "min":
		return db.MinAgg, nil
	case "max":
		return db.MaxAgg, nil
	case "sum":
		return db.SumAgg, nil
	case "count":
		return db.CountAgg, nil
	case "avg":
		return db.AvgAgg, nil
	default:
		return 0, fmt.Errorf("query: unsupported aggregate function %q", name)
	}
}

func fieldIndex(td *db.TupleDesc, name string) (int, error) {
	for i, f := range td.Fields {
		if f.Fname == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("query: unknown column %q", name)
}

func compileProject(exprs sqlparser.SelectExprs, child db.Operator) (db.Operator, error) {
	td := child.TupleDesc()
	if len(exprs) == 1 {
		if _, ok := exprs[0].(*sqlparser.StarExpr); ok {
			fields := make([]db.Expr, len(td.Fields))
			names := make([]string, len(td.Fields))
			for i, f := range td.Fields {
				fields[i] = db.FieldExpr{Field: f}
				names[i] = f.Fname
			}
			return db.NewProjectOp(fields, names, false, child)
		}
	}

	fields := make([]db.Expr, 0, len(exprs))
	names := make([]string, 0, len(exprs))
	for _, se := range exprs {
		aliased, ok := se.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, fmt.Errorf("query: unsupported select expression %T", se)
		}
		fe, err := exprToFieldExpr(aliased.Expr, td)
		if err != nil {
			return nil, err
		}
		name := fe.GetExprType().Fname
		if !aliased.As.IsEmpty() {
			name = aliased.As.CompliantName()
		}
		fields = append(fields, fe)
		names = append(names, name)
	}
	return db.NewProjectOp(fields, names, false, child)
}

func compileOrderBy(orderBy sqlparser.OrderBy, child db.Operator) (db.Operator, error) {
	td := child.TupleDesc()
	fields := make([]db.Expr, 0, len(orderBy))
	ascending := make([]bool, 0, len(orderBy))
	for _, o := range orderBy {
		fe, err := exprToFieldExpr(o.Expr, td)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fe)
		ascending = append(ascending, o.Direction != sqlparser.DescScr)
	}
	return db.NewOrderBy(fields, child, ascending)
}
