package expression

import (
	"encoding/json"
	"errors"

	"github.com/jamesrr39/goutil/errorsx"
)

var (
	ErrMalformed = errors.New("malformed expression")
)

// Wire flattens the tree into the nested array form, e.g. ["get", "name"]
func (e *Expression) Wire() interface{} {
	if e == nil {
		return nil
	}

	wire := make([]interface{}, 0, len(e.Operands)+1)
	wire = append(wire, string(e.Operator))
	for _, operand := range e.Operands {
		wire = append(wire, operandToWire(operand))
	}
	return wire
}

func operandToWire(operand interface{}) interface{} {
	switch v := operand.(type) {
	case *Expression:
		return v.Wire()
	case Color:
		return v.String()
	case []interface{}:
		items := make([]interface{}, len(v))
		for i, item := range v {
			items[i] = operandToWire(item)
		}
		return items
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for key, item := range v {
			m[key] = operandToWire(item)
		}
		return m
	default:
		return v
	}
}

func (e *Expression) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Wire())
}

func (e *Expression) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}

	*e = *parsed
	return nil
}

func (e *Expression) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}

// Parse decodes the wire form. Operators are not checked here, see Validate.
func Parse(data []byte) (*Expression, errorsx.Error) {
	var raw interface{}
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return FromWire(raw)
}

// FromWire builds a tree from already-decoded JSON (as produced by encoding/json into an interface{})
func FromWire(raw interface{}) (*Expression, errorsx.Error) {
	arr, ok := raw.([]interface{})
	if !ok || len(arr) == 0 {
		return nil, errorsx.Wrap(ErrMalformed, "reason", "expression must be a non-empty array")
	}

	operatorName, ok := arr[0].(string)
	if !ok {
		return nil, errorsx.Wrap(ErrMalformed, "reason", "first element of an expression must be an operator name")
	}

	operator := Operator(operatorName)
	rawOperands := arr[1:]
	operands := make([]interface{}, 0, len(rawOperands))
	for idx, rawOperand := range rawOperands {
		if isRawOperand(operator, idx, len(rawOperands)) {
			operands = append(operands, rawOperand)
			continue
		}

		operand, err := operandFromWire(rawOperand)
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}

	return &Expression{operator, operands}, nil
}

func operandFromWire(raw interface{}) (interface{}, errorsx.Error) {
	arr, ok := raw.([]interface{})
	if !ok || !looksLikeExpression(arr) {
		return raw, nil
	}

	return FromWire(arr)
}

// isRawOperand reports operand positions that hold data rather than sub-expressions
func isRawOperand(operator Operator, idx, operandCount int) bool {
	switch operator {
	case OperatorLiteral:
		return true
	case OperatorMatch:
		// input, (label, output)*, fallback
		return idx > 0 && idx < operandCount-1 && (idx-1)%2 == 0
	default:
		return false
	}
}

func looksLikeExpression(arr []interface{}) bool {
	if len(arr) == 0 {
		return false
	}
	_, ok := arr[0].(string)
	return ok
}

// HasOperatorHead reports whether a decoded JSON value is a non-empty array starting with a string,
// which is the shape of an expression whether or not the operator is known
func HasOperatorHead(raw interface{}) bool {
	arr, ok := raw.([]interface{})
	return ok && looksLikeExpression(arr)
}

// IsExpression reports whether a decoded JSON value is an expression with a known operator.
// Arrays of plain strings, such as text-font stacks, are not expressions.
func IsExpression(raw interface{}) bool {
	arr, ok := raw.([]interface{})
	if !ok || len(arr) == 0 {
		return false
	}
	operatorName, ok := arr[0].(string)
	if !ok {
		return false
	}
	return Operator(operatorName).IsKnown()
}
