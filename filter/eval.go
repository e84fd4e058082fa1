package filter

// Resolver exposes a single container's named field values to the
// evaluator, so this package does not need to import container and create
// a dependency cycle.
type Resolver interface {
	// Get returns the value of field name and true, or (nil, false) if the
	// field is absent.
	Get(name string) (interface{}, bool)
}

// Eval evaluates pred against c. A nil pred always evaluates to true.
func Eval(pred *Predicate, c Resolver) bool {
	if pred == nil {
		return true
	}
	return evalExpr(pred.Root, c)
}

func evalExpr(e Expr, c Resolver) bool {
	switch n := e.(type) {
	case *And:
		return evalExpr(n.Left, c) && evalExpr(n.Right, c)
	case *Or:
		return evalExpr(n.Left, c) || evalExpr(n.Right, c)
	case *Not:
		return !evalExpr(n.Expr, c)
	case *Comparison:
		return evalComparison(n, c)
	default:
		// A bare atom used as a standalone predicate (e.g. a lone boolean
		// field or literal) is truthy only for a true boolean literal or
		// field; anything else is false. The grammar reaches this path for
		// an atom with no comparison operator, whether it stands alone or
		// is an operand of and/or/not.
		v, ok := resolveAtom(e, c)
		if !ok {
			return false
		}
		b, ok := v.(bool)
		return ok && b
	}
}

func evalComparison(n *Comparison, c Resolver) bool {
	left, leftOK := resolveAtom(n.Left, c)
	right, rightOK := resolveAtom(n.Right, c)
	if !leftOK || !rightOK {
		// Absent compares unequal to any literal, including another absent
		// field, under every operator except !=, which is true.
		return n.Op == Ne
	}
	return compare(left, n.Op, right)
}

// resolveAtom evaluates a Field or Literal leaf to a runtime value. The
// second return is false only for an absent field.
func resolveAtom(e Expr, c Resolver) (interface{}, bool) {
	switch n := e.(type) {
	case *Field:
		return c.Get(n.Name)
	case *Literal:
		switch n.Kind {
		case LiteralInt:
			return n.Int, true
		case LiteralString:
			return n.Str, true
		case LiteralBool:
			return n.Bool, true
		}
	}
	return nil, false
}

// compare implements the mismatched-type-yields-false rule: comparisons
// between values of different runtime kinds are always false, never an
// error, except for != which is true when the kinds differ.
func compare(left interface{}, op Op, right interface{}) bool {
	switch l := left.(type) {
	case int64:
		r, ok := asInt64(right)
		if !ok {
			return op == Ne
		}
		return compareOrdered(l, op, r)
	case string:
		r, ok := right.(string)
		if !ok {
			return op == Ne
		}
		return compareOrdered(l, op, r)
	case bool:
		r, ok := right.(bool)
		if !ok {
			return op == Ne
		}
		return compareBool(l, op, r)
	default:
		return op == Ne
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func compareOrdered[T int64 | string](l T, op Op, r T) bool {
	switch op {
	case Eq:
		return l == r
	case Ne:
		return l != r
	case Lt:
		return l < r
	case Le:
		return l <= r
	case Gt:
		return l > r
	case Ge:
		return l >= r
	default:
		return false
	}
}

func compareBool(l bool, op Op, r bool) bool {
	switch op {
	case Eq:
		return l == r
	case Ne:
		return l != r
	default:
		// Booleans have no total order; <, <=, >, >= are always false.
		return false
	}
}
