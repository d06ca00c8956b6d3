package expression

type Operator string

// lookup
const (
	OperatorGet          Operator = "get"
	OperatorHas          Operator = "has"
	OperatorAt           Operator = "at"
	OperatorIn           Operator = "in"
	OperatorLength       Operator = "length"
	OperatorProperties   Operator = "properties"
	OperatorGeometryType Operator = "geometry-type"
	OperatorID           Operator = "id"
	OperatorZoom         Operator = "zoom"
	OperatorLiteral      Operator = "literal"
)

// decision
const (
	OperatorEquals             Operator = "=="
	OperatorNotEqual           Operator = "!="
	OperatorLessThan           Operator = "<"
	OperatorLessThanOrEqual    Operator = "<="
	OperatorGreaterThan        Operator = ">"
	OperatorGreaterThanOrEqual Operator = ">="
	OperatorAll                Operator = "all"
	OperatorAny                Operator = "any"
	OperatorNot                Operator = "!"
	OperatorCase               Operator = "case"
	OperatorMatch              Operator = "match"
	OperatorCoalesce           Operator = "coalesce"
)

// ramps, scales, curves
const (
	OperatorInterpolate Operator = "interpolate"
	OperatorStep        Operator = "step"
	OperatorLinear      Operator = "linear"
	OperatorExponential Operator = "exponential"
	OperatorCubicBezier Operator = "cubic-bezier"
)

// math
const (
	OperatorAdd      Operator = "+"
	OperatorSubtract Operator = "-"
	OperatorMultiply Operator = "*"
	OperatorDivide   Operator = "/"
	OperatorMod      Operator = "%"
	OperatorPow      Operator = "^"
)

// types, strings, colors, variable binding
const (
	OperatorToString  Operator = "to-string"
	OperatorToNumber  Operator = "to-number"
	OperatorToBoolean Operator = "to-boolean"
	OperatorToColor   Operator = "to-color"
	OperatorConcat    Operator = "concat"
	OperatorFormat    Operator = "format"
	OperatorRGB       Operator = "rgb"
	OperatorRGBA      Operator = "rgba"
	OperatorLet       Operator = "let"
	OperatorVar       Operator = "var"
)

// legacy filter operators, still accepted in "filter" properties
const (
	OperatorLegacyNotIn  Operator = "!in"
	OperatorLegacyNotHas Operator = "!has"
	OperatorLegacyNone   Operator = "none"
)

const unbounded = -1

type arity struct {
	min, max int
}

var operatorArities = map[Operator]arity{
	OperatorGet:          {1, 2},
	OperatorHas:          {1, 2},
	OperatorAt:           {2, 2},
	OperatorIn:           {2, unbounded},
	OperatorLength:       {1, 1},
	OperatorProperties:   {0, 0},
	OperatorGeometryType: {0, 0},
	OperatorID:           {0, 0},
	OperatorZoom:         {0, 0},
	OperatorLiteral:      {1, 1},

	OperatorEquals:             {2, 3},
	OperatorNotEqual:           {2, 3},
	OperatorLessThan:           {2, 3},
	OperatorLessThanOrEqual:    {2, 3},
	OperatorGreaterThan:        {2, 3},
	OperatorGreaterThanOrEqual: {2, 3},
	OperatorAll:                {0, unbounded},
	OperatorAny:                {0, unbounded},
	OperatorNot:                {1, 1},
	OperatorCase:               {3, unbounded},
	OperatorMatch:              {4, unbounded},
	OperatorCoalesce:           {1, unbounded},

	OperatorInterpolate: {4, unbounded},
	OperatorStep:        {2, unbounded},
	OperatorLinear:      {0, 0},
	OperatorExponential: {1, 1},
	OperatorCubicBezier: {4, 4},

	OperatorAdd:      {2, unbounded},
	OperatorSubtract: {1, 2},
	OperatorMultiply: {2, unbounded},
	OperatorDivide:   {2, 2},
	OperatorMod:      {2, 2},
	OperatorPow:      {2, 2},

	OperatorToString:  {1, 1},
	OperatorToNumber:  {1, unbounded},
	OperatorToBoolean: {1, 1},
	OperatorToColor:   {1, unbounded},
	OperatorConcat:    {1, unbounded},
	OperatorFormat:    {1, unbounded},
	OperatorRGB:       {3, 3},
	OperatorRGBA:      {4, 4},
	OperatorLet:       {3, unbounded},
	OperatorVar:       {1, 1},

	OperatorLegacyNotIn:  {1, unbounded},
	OperatorLegacyNotHas: {1, 1},
	OperatorLegacyNone:   {0, unbounded},
}

// IsKnown reports whether the operator is one the engine can parse
func (o Operator) IsKnown() bool {
	_, ok := operatorArities[o]
	return ok
}
