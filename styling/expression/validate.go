package expression

import (
	"fmt"

	"github.com/jamesrr39/goutil/errorsx"
)

// Validate checks operators, arity and the structure of ramps and decisions, recursively.
// It returns an error wrapping ErrMalformed for the first problem found.
func Validate(expr *Expression) errorsx.Error {
	return validateAt(expr, "$")
}

func validateAt(expr *Expression, path string) errorsx.Error {
	if expr == nil {
		return malformed(path, "", "nil expression")
	}

	operator := expr.Operator
	arities, ok := operatorArities[operator]
	if !ok {
		return malformed(path, operator, "unknown operator")
	}

	operandCount := len(expr.Operands)
	if operandCount < arities.min || (arities.max != unbounded && operandCount > arities.max) {
		return malformed(path, operator, fmt.Sprintf("expected %s operands but got %d", arities, operandCount))
	}

	err := validateStructure(expr, path)
	if err != nil {
		return err
	}

	for idx, operand := range expr.Operands {
		if isRawOperand(operator, idx, operandCount) {
			continue
		}

		err = validateOperand(operand, fmt.Sprintf("%s[%d]", path, idx+1))
		if err != nil {
			return err
		}
	}

	return nil
}

func validateOperand(operand interface{}, path string) errorsx.Error {
	switch v := operand.(type) {
	case *Expression:
		return validateAt(v, path)
	case map[string]interface{}:
		for key, item := range v {
			err := validateOperand(item, path+"."+key)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStructure(expr *Expression, path string) errorsx.Error {
	operands := expr.Operands
	operandCount := len(operands)

	switch expr.Operator {
	case OperatorGet, OperatorHas:
		if !isStringOrExpression(operands[0]) {
			return malformed(path, expr.Operator, "property name must be a string")
		}
	case OperatorVar:
		if _, ok := operands[0].(string); !ok {
			return malformed(path, expr.Operator, "variable name must be a string")
		}
	case OperatorLet:
		// (name, value)*, body
		if operandCount%2 != 1 {
			return malformed(path, expr.Operator, "expected name/value pairs followed by a body")
		}
		for i := 0; i < operandCount-1; i += 2 {
			if _, ok := operands[i].(string); !ok {
				return malformed(path, expr.Operator, "variable name must be a string")
			}
		}
	case OperatorMatch:
		// input, (label, output)+, fallback
		if operandCount%2 != 0 {
			return malformed(path, expr.Operator, "expected label/output pairs between the input and the fallback")
		}
		for i := 1; i < operandCount-1; i += 2 {
			if !isValidMatchLabel(operands[i]) {
				return malformed(path, expr.Operator, fmt.Sprintf("invalid label at position %d", i+1))
			}
		}
	case OperatorCase:
		// (condition, output)+, fallback
		if operandCount%2 != 1 {
			return malformed(path, expr.Operator, "expected condition/output pairs followed by a fallback")
		}
	case OperatorInterpolate:
		// interpolation, input, (stop, output)+
		interpolation, ok := operands[0].(*Expression)
		if !ok {
			return malformed(path, expr.Operator, "first operand must be an interpolation type")
		}
		switch interpolation.Operator {
		case OperatorLinear, OperatorExponential, OperatorCubicBezier:
		default:
			return malformed(path, expr.Operator, fmt.Sprintf("unknown interpolation type %q", interpolation.Operator))
		}
		if operandCount%2 != 0 {
			return malformed(path, expr.Operator, "expected stop input/output pairs")
		}
		err := validateStops(operands[2:], path, expr.Operator)
		if err != nil {
			return err
		}
	case OperatorStep:
		// input, default output, (stop, output)*
		if operandCount%2 != 0 {
			return malformed(path, expr.Operator, "expected stop input/output pairs")
		}
		err := validateStops(operands[2:], path, expr.Operator)
		if err != nil {
			return err
		}
	case OperatorFormat:
		// (content, options)+
		if operandCount%2 != 0 {
			return malformed(path, expr.Operator, "expected content/options pairs")
		}
		for i := 1; i < operandCount; i += 2 {
			if _, ok := operands[i].(map[string]interface{}); !ok {
				return malformed(path, expr.Operator, "format options must be an object")
			}
		}
	}

	return nil
}

func validateStops(stopPairs []interface{}, path string, operator Operator) errorsx.Error {
	var previous float64
	for i := 0; i < len(stopPairs); i += 2 {
		input, ok := toFloat(stopPairs[i])
		if !ok {
			return malformed(path, operator, fmt.Sprintf("stop input must be a number literal, got %v", stopPairs[i]))
		}
		if i > 0 && input <= previous {
			return malformed(path, operator, "stop inputs must be in strictly ascending order")
		}
		previous = input
	}
	return nil
}

func isStringOrExpression(operand interface{}) bool {
	switch operand.(type) {
	case string, *Expression:
		return true
	default:
		return false
	}
}

func isValidMatchLabel(label interface{}) bool {
	switch v := label.(type) {
	case string, bool:
		return true
	case []interface{}:
		if len(v) == 0 {
			return false
		}
		for _, item := range v {
			if !isValidMatchLabel(item) {
				return false
			}
		}
		return true
	default:
		_, ok := toFloat(v)
		return ok
	}
}

func (a arity) String() string {
	switch {
	case a.max == unbounded:
		return fmt.Sprintf("at least %d", a.min)
	case a.min == a.max:
		return fmt.Sprintf("exactly %d", a.min)
	default:
		return fmt.Sprintf("between %d and %d", a.min, a.max)
	}
}

func malformed(path string, operator Operator, reason string) errorsx.Error {
	return errorsx.Wrap(ErrMalformed, "path", path, "operator", operator, "reason", reason)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
