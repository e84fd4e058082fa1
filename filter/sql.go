package filter

import (
	"fmt"

	"github.com/huandu/go-sqlbuilder"
)

// Pushdown compiles pred into a SQL WHERE clause fragment plus its bound
// arguments, provided every field the predicate references is listed in
// columns. If some referenced field is not a column, ok is false and the
// caller should fall back to in-process evaluation (via Eval) for the whole
// predicate; this package does not support partially pushing down one half
// of a boolean expression.
func Pushdown(pred *Predicate, columns map[string]bool) (clause string, args []interface{}, ok bool) {
	if pred == nil {
		return "", nil, true
	}
	for _, name := range pred.Fields {
		if !columns[name] {
			return "", nil, false
		}
	}
	cond := sqlbuilder.NewCond()
	cond.Args.Flavor = sqlbuilder.SQLite
	conditionStr, err := compileSQL(pred.Root, cond)
	if err != nil {
		return "", nil, false
	}
	where := sqlbuilder.NewWhereClause()
	where.AddWhereExpr(cond.Args, conditionStr)
	clause, args = where.BuildWithFlavor(sqlbuilder.SQLite)
	return clause, args, true
}

func compileSQL(e Expr, cond *sqlbuilder.Cond) (string, error) {
	switch n := e.(type) {
	case *And:
		l, err := compileSQL(n.Left, cond)
		if err != nil {
			return "", err
		}
		r, err := compileSQL(n.Right, cond)
		if err != nil {
			return "", err
		}
		return cond.And(l, r), nil
	case *Or:
		l, err := compileSQL(n.Left, cond)
		if err != nil {
			return "", err
		}
		r, err := compileSQL(n.Right, cond)
		if err != nil {
			return "", err
		}
		return cond.Or(l, r), nil
	case *Not:
		inner, err := compileSQL(n.Expr, cond)
		if err != nil {
			return "", err
		}
		return cond.Not(inner), nil
	case *Comparison:
		return compileComparison(n, cond)
	default:
		return "", fmt.Errorf("filter: cannot compile standalone atom for pushdown")
	}
}

func compileComparison(n *Comparison, cond *sqlbuilder.Cond) (string, error) {
	field, literal, swapped, err := splitComparison(n)
	if err != nil {
		return "", err
	}
	op := n.Op
	if swapped {
		op = swapOp(op)
	}
	value := literalValue(literal)
	var expr string
	switch op {
	case Eq:
		expr = cond.Equal(field.Name, value)
	case Ne:
		expr = cond.NotEqual(field.Name, value)
	case Lt:
		expr = cond.LessThan(field.Name, value)
	case Le:
		expr = cond.LessEqualThan(field.Name, value)
	case Gt:
		expr = cond.GreaterThan(field.Name, value)
	case Ge:
		expr = cond.GreaterEqualThan(field.Name, value)
	default:
		return "", fmt.Errorf("filter: unrecognized comparison operator")
	}
	// An absent field is a NULL column. Guard each comparison so it is
	// never NULL: true for != and false otherwise, as Eval treats absent.
	if op == Ne {
		return cond.Or(cond.IsNull(field.Name), expr), nil
	}
	return cond.And(cond.IsNotNull(field.Name), expr), nil
}

// splitComparison identifies which side of a comparison is the field and
// which is the literal; the grammar only allows one field per comparison
// side to be meaningfully pushed down (field-vs-literal or literal-vs-field).
func splitComparison(n *Comparison) (field *Field, literal *Literal, swapped bool, err error) {
	if f, ok := n.Left.(*Field); ok {
		if l, ok := n.Right.(*Literal); ok {
			return f, l, false, nil
		}
	}
	if f, ok := n.Right.(*Field); ok {
		if l, ok := n.Left.(*Literal); ok {
			return f, l, true, nil
		}
	}
	return nil, nil, false, fmt.Errorf("filter: comparison is not field-vs-literal, cannot push down")
}

func swapOp(op Op) Op {
	switch op {
	case Lt:
		return Gt
	case Le:
		return Ge
	case Gt:
		return Lt
	case Ge:
		return Le
	default:
		return op
	}
}

func literalValue(l *Literal) interface{} {
	switch l.Kind {
	case LiteralInt:
		return l.Int
	case LiteralString:
		return l.Str
	case LiteralBool:
		if l.Bool {
			return int64(1)
		}
		return int64(0)
	default:
		return nil
	}
}
