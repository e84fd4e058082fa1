package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapResolver map[string]interface{}

func (m mapResolver) Get(name string) (interface{}, bool) {
	v, ok := m[name]
	return v, ok
}

func TestParseSimpleComparison(t *testing.T) {
	pred, err := Parse(`attribute == "MyAttribute"`)
	assert.NoError(t, err)
	assert.Equal(t, []string{"attribute"}, pred.Fields)

	cmp, ok := pred.Root.(*Comparison)
	assert.True(t, ok)
	assert.Equal(t, Eq, cmp.Op)
}

func TestParseAndOrNotPrecedence(t *testing.T) {
	pred, err := Parse(`a == 1 and b == 2 or not c == 3`)
	assert.NoError(t, err)
	// top-level should be Or((a==1 and b==2), Not(c==3))
	or, ok := pred.Root.(*Or)
	assert.True(t, ok)
	_, ok = or.Left.(*And)
	assert.True(t, ok)
	_, ok = or.Right.(*Not)
	assert.True(t, ok)
}

func TestParseParentheses(t *testing.T) {
	pred, err := Parse(`(a == 1 or b == 2) and c == 3`)
	assert.NoError(t, err)
	and, ok := pred.Root.(*And)
	assert.True(t, ok)
	_, ok = and.Left.(*Or)
	assert.True(t, ok)
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := Parse(`a == 1 )`)
	assert.Error(t, err)
}

func TestParseFieldOrderIsFirstAppearance(t *testing.T) {
	pred, err := Parse(`b == 1 and a == 2 and b == 3`)
	assert.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, pred.Fields)
}

func TestEvalComparisons(t *testing.T) {
	pred, err := Parse(`attribute == "MyAttribute"`)
	assert.NoError(t, err)

	assert.True(t, Eval(pred, mapResolver{"attribute": "MyAttribute"}))
	assert.False(t, Eval(pred, mapResolver{"attribute": "other"}))
}

func TestEvalNilPredicateAlwaysTrue(t *testing.T) {
	assert.True(t, Eval(nil, mapResolver{}))
}

func TestEvalAbsentFieldComparesUnequal(t *testing.T) {
	pred, err := Parse(`attribute == "x"`)
	assert.NoError(t, err)
	assert.False(t, Eval(pred, mapResolver{}))

	neq, err := Parse(`attribute != "x"`)
	assert.NoError(t, err)
	assert.True(t, Eval(neq, mapResolver{}))
}

func TestEvalOrderedComparison(t *testing.T) {
	pred, err := Parse(`n > 5`)
	assert.NoError(t, err)
	assert.True(t, Eval(pred, mapResolver{"n": int64(6)}))
	assert.False(t, Eval(pred, mapResolver{"n": int64(5)}))
}

func TestPushdownRejectsUnknownField(t *testing.T) {
	pred, err := Parse(`unknown_field == "x"`)
	assert.NoError(t, err)

	_, _, ok := Pushdown(pred, map[string]bool{"attribute": true})
	assert.False(t, ok)
}

func TestPushdownBuildsWhereClause(t *testing.T) {
	pred, err := Parse(`attribute == "MyAttribute"`)
	assert.NoError(t, err)

	clause, args, ok := Pushdown(pred, map[string]bool{"attribute": true})
	assert.True(t, ok)
	assert.Contains(t, clause, "WHERE")
	assert.Equal(t, []interface{}{"MyAttribute"}, args)
}

func TestPushdownNilPredicateIsEmptyClause(t *testing.T) {
	clause, args, ok := Pushdown(nil, map[string]bool{})
	assert.True(t, ok)
	assert.Empty(t, clause)
	assert.Empty(t, args)
}

func TestPushdownCompoundExpression(t *testing.T) {
	pred, err := Parse(`a == 1 and b == "y"`)
	assert.NoError(t, err)

	clause, args, ok := Pushdown(pred, map[string]bool{"a": true, "b": true})
	assert.True(t, ok)
	assert.Contains(t, clause, "a")
	assert.Contains(t, clause, "b")
	assert.Len(t, args, 2)
}
