package expression

/*
An Expression is a node in a tree. Its operands are either nested *Expression values,
or literal values (float64, int, string, bool, nil, Color, []interface{}, map[string]interface{}).

	["interpolate", ["linear"], ["zoom"], 10, 2, 18, 12]

is built with

	Interpolate(Linear(), Zoom(), Stop{10, 2}, Stop{18, 12})

Nothing is checked while building. Arity and operator errors are found by Validate, which the
map session runs when a layer is submitted.
*/
type Expression struct {
	Operator Operator
	Operands []interface{}
}

func New(operator Operator, operands ...interface{}) *Expression {
	if operands == nil {
		operands = []interface{}{}
	}
	return &Expression{operator, operands}
}

// Stop is an input/output pair for interpolate and step
type Stop struct {
	Input  float64
	Output interface{}
}

// MatchCase maps one label (or a []interface{} of labels) to an output
type MatchCase struct {
	Label  interface{}
	Output interface{}
}

// Branch is a condition/output pair for case
type Branch struct {
	Condition interface{}
	Output    interface{}
}

// FormatSection is one section of a format expression
type FormatSection struct {
	Content interface{}
	Options map[string]interface{}
}

func Get(property string) *Expression {
	return New(OperatorGet, property)
}

func GetFrom(property string, object *Expression) *Expression {
	return New(OperatorGet, property, object)
}

func Has(property string) *Expression {
	return New(OperatorHas, property)
}

func Literal(value interface{}) *Expression {
	return New(OperatorLiteral, value)
}

func Zoom() *Expression {
	return New(OperatorZoom)
}

func GeometryType() *Expression {
	return New(OperatorGeometryType)
}

func ID() *Expression {
	return New(OperatorID)
}

func Properties() *Expression {
	return New(OperatorProperties)
}

func At(index interface{}, array interface{}) *Expression {
	return New(OperatorAt, index, array)
}

func In(needle interface{}, haystack interface{}) *Expression {
	return New(OperatorIn, needle, haystack)
}

func Length(value interface{}) *Expression {
	return New(OperatorLength, value)
}

func Linear() *Expression {
	return New(OperatorLinear)
}

func Exponential(base float64) *Expression {
	return New(OperatorExponential, base)
}

func CubicBezier(x1, y1, x2, y2 float64) *Expression {
	return New(OperatorCubicBezier, x1, y1, x2, y2)
}

func Interpolate(interpolation *Expression, input interface{}, stops ...Stop) *Expression {
	operands := []interface{}{interpolation, input}
	for _, stop := range stops {
		operands = append(operands, stop.Input, stop.Output)
	}
	return New(OperatorInterpolate, operands...)
}

func Step(input interface{}, defaultOutput interface{}, stops ...Stop) *Expression {
	operands := []interface{}{input, defaultOutput}
	for _, stop := range stops {
		operands = append(operands, stop.Input, stop.Output)
	}
	return New(OperatorStep, operands...)
}

func Match(input interface{}, fallback interface{}, cases ...MatchCase) *Expression {
	operands := []interface{}{input}
	for _, c := range cases {
		operands = append(operands, c.Label, c.Output)
	}
	operands = append(operands, fallback)
	return New(OperatorMatch, operands...)
}

func Case(fallback interface{}, branches ...Branch) *Expression {
	var operands []interface{}
	for _, branch := range branches {
		operands = append(operands, branch.Condition, branch.Output)
	}
	operands = append(operands, fallback)
	return New(OperatorCase, operands...)
}

func Coalesce(values ...interface{}) *Expression {
	return New(OperatorCoalesce, values...)
}

func Eq(a, b interface{}) *Expression {
	return New(OperatorEquals, a, b)
}

func Neq(a, b interface{}) *Expression {
	return New(OperatorNotEqual, a, b)
}

func Lt(a, b interface{}) *Expression {
	return New(OperatorLessThan, a, b)
}

func Lte(a, b interface{}) *Expression {
	return New(OperatorLessThanOrEqual, a, b)
}

func Gt(a, b interface{}) *Expression {
	return New(OperatorGreaterThan, a, b)
}

func Gte(a, b interface{}) *Expression {
	return New(OperatorGreaterThanOrEqual, a, b)
}

func All(conditions ...interface{}) *Expression {
	return New(OperatorAll, conditions...)
}

func Any(conditions ...interface{}) *Expression {
	return New(OperatorAny, conditions...)
}

func Not(condition interface{}) *Expression {
	return New(OperatorNot, condition)
}

func Add(values ...interface{}) *Expression {
	return New(OperatorAdd, values...)
}

func Subtract(a, b interface{}) *Expression {
	return New(OperatorSubtract, a, b)
}

func Multiply(values ...interface{}) *Expression {
	return New(OperatorMultiply, values...)
}

func Divide(a, b interface{}) *Expression {
	return New(OperatorDivide, a, b)
}

func Mod(a, b interface{}) *Expression {
	return New(OperatorMod, a, b)
}

func Pow(a, b interface{}) *Expression {
	return New(OperatorPow, a, b)
}

func ToString(value interface{}) *Expression {
	return New(OperatorToString, value)
}

func ToNumber(values ...interface{}) *Expression {
	return New(OperatorToNumber, values...)
}

func ToBoolean(value interface{}) *Expression {
	return New(OperatorToBoolean, value)
}

func ToColor(values ...interface{}) *Expression {
	return New(OperatorToColor, values...)
}

func RGB(r, g, b interface{}) *Expression {
	return New(OperatorRGB, r, g, b)
}

func RGBA(r, g, b, a interface{}) *Expression {
	return New(OperatorRGBA, r, g, b, a)
}

func Concat(values ...interface{}) *Expression {
	return New(OperatorConcat, values...)
}

func Format(sections ...FormatSection) *Expression {
	var operands []interface{}
	for _, section := range sections {
		options := section.Options
		if options == nil {
			options = map[string]interface{}{}
		}
		operands = append(operands, section.Content, options)
	}
	return New(OperatorFormat, operands...)
}

func Let(name string, value interface{}, body interface{}) *Expression {
	return New(OperatorLet, name, value, body)
}

func Var(name string) *Expression {
	return New(OperatorVar, name)
}
