package dice

import (
	"fmt"
	"regexp"
	"strconv"
)

// expressionPattern matches NdM, NdM+K, and NdM-K.
var expressionPattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Expression is a parsed dice expression such as "2d6+3".
type Expression struct {
	Count    int
	Sides    int
	Modifier int
}

// ParseExpression parses an NdM+K dice expression. Whitespace is not
// tolerated; the narrator contract requires compact expressions.
func ParseExpression(expr string) (Expression, error) {
	match := expressionPattern.FindStringSubmatch(expr)
	if match == nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	count, err := strconv.Atoi(match[1])
	if err != nil || count < 1 {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
	sides, err := strconv.Atoi(match[2])
	if err != nil || sides < 1 {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	modifier := 0
	if match[3] != "" {
		modifier, err = strconv.Atoi(match[3])
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
		}
	}

	return Expression{Count: count, Sides: sides, Modifier: modifier}, nil
}

// String renders the expression back to NdM+K form.
func (e Expression) String() string {
	switch {
	case e.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", e.Count, e.Sides, e.Modifier)
	case e.Modifier < 0:
		return fmt.Sprintf("%dd%d%d", e.Count, e.Sides, e.Modifier)
	default:
		return fmt.Sprintf("%dd%d", e.Count, e.Sides)
	}
}

// Reroll records one reroll-below replacement: the die at Index originally
// showed Original and now shows the value stored in the result's Rolls slice.
type Reroll struct {
	Index    int
	Original int
}

// ExpressionResult is the outcome of rolling a dice expression.
type ExpressionResult struct {
	Expression Expression
	Rolls      []int
	Rerolls    []Reroll
	Modifier   int
	Total      int
}

// Roll rolls a parsed expression: total = sum(rolls) + modifier.
func (r *Roller) Roll(e Expression) (ExpressionResult, error) {
	return r.roll(e, e.Count, 0)
}

// RollExpression parses and rolls a dice expression string.
func (r *Roller) RollExpression(expr string) (ExpressionResult, error) {
	parsed, err := ParseExpression(expr)
	if err != nil {
		return ExpressionResult{}, err
	}
	return r.Roll(parsed)
}

// RollCritical rolls an expression in critical mode: the number of dice is
// doubled, the modifier is not.
func (r *Roller) RollCritical(e Expression) (ExpressionResult, error) {
	return r.roll(e, e.Count*2, 0)
}

// RollRerollBelow rolls an expression where each die that shows threshold or
// less is rerolled exactly once, keeping the second result regardless of
// outcome. Rerolls happen inline, die by die, in roll order.
func (r *Roller) RollRerollBelow(e Expression, threshold int) (ExpressionResult, error) {
	return r.roll(e, e.Count, threshold)
}

func (r *Roller) roll(e Expression, count, rerollThreshold int) (ExpressionResult, error) {
	if e.Sides <= 0 {
		return ExpressionResult{}, ErrInvalidSides
	}
	if count < 1 {
		return ExpressionResult{}, fmt.Errorf("%w: %q", ErrInvalidExpression, e)
	}

	result := ExpressionResult{
		Expression: e,
		Rolls:      make([]int, 0, count),
		Modifier:   e.Modifier,
	}
	for i := 0; i < count; i++ {
		value := r.src.die(e.Sides)
		if rerollThreshold > 0 && value <= rerollThreshold {
			result.Rerolls = append(result.Rerolls, Reroll{Index: i, Original: value})
			value = r.src.die(e.Sides)
		}
		result.Rolls = append(result.Rolls, value)
		result.Total += value
	}
	result.Total += e.Modifier
	return result, nil
}
