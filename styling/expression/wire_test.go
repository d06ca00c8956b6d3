package expression

import (
	"testing"

	snapshot "github.com/jamesrr39/go-snapshot-testing"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		expr *Expression
	}{
		{
			name: "interpolate_zoom_line_width",
			expr: Interpolate(Exponential(1.5), Zoom(), Stop{5, 0.5}, Stop{18, 30}),
		}, {
			name: "match_class_colour",
			expr: Match(Get("class"), "#cccccc",
				MatchCase{"park", "#00ff00"},
				MatchCase{[]interface{}{"river", "lake"}, "#0000ff"},
			),
		}, {
			name: "format_with_options",
			expr: Format(
				FormatSection{Get("name"), map[string]interface{}{"font-scale": 1.2}},
				FormatSection{"\n", nil},
				FormatSection{Get("ele"), map[string]interface{}{"text-color": Color{255, 0, 0, 1}}},
			),
		}, {
			name: "case_with_colors",
			expr: Case(Color{0, 0, 0, 1}, Branch{Has("name"), RGB(255, 0, 0)}),
		}, {
			name: "let_var",
			expr: Let("density", Divide(Get("population"), Get("area")), Step(Var("density"), 1, Stop{100, 2}, Stop{1000, 3})),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.expr.MarshalJSON()
			require.NoError(t, err)

			snapshot.AssertMatchesSnapshot(t, tt.name, snapshot.NewTextSnapshot(string(b)))

			// serializing again gives identical bytes
			again, err := tt.expr.MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, string(b), string(again))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("nested expressions", func(t *testing.T) {
		expr, err := Parse([]byte(`["interpolate", ["linear"], ["zoom"], 10, 2, 18, ["get", "width"]]`))
		require.NoError(t, err)

		assert.Equal(t, OperatorInterpolate, expr.Operator)
		require.Len(t, expr.Operands, 6)
		assert.Equal(t, Linear(), expr.Operands[0])
		assert.Equal(t, Zoom(), expr.Operands[1])
		assert.Equal(t, 10.0, expr.Operands[2])
		assert.Equal(t, Get("width"), expr.Operands[5])
	})

	t.Run("match labels stay raw", func(t *testing.T) {
		expr, err := Parse([]byte(`["match", ["get", "class"], ["river", "lake"], "blue", "park", "green", "gray"]`))
		require.NoError(t, err)

		require.Len(t, expr.Operands, 6)
		assert.Equal(t, Get("class"), expr.Operands[0])
		assert.Equal(t, []interface{}{"river", "lake"}, expr.Operands[1])
		assert.Equal(t, "park", expr.Operands[3])
		assert.Equal(t, "gray", expr.Operands[5])
	})

	t.Run("literal arrays stay raw", func(t *testing.T) {
		expr, err := Parse([]byte(`["literal", ["Open Sans Bold", "Arial Unicode MS Bold"]]`))
		require.NoError(t, err)

		assert.Equal(t, Literal([]interface{}{"Open Sans Bold", "Arial Unicode MS Bold"}), expr)
	})

	t.Run("wire form survives a round trip", func(t *testing.T) {
		input := `["all",["==",["geometry-type"],"Point"],["!",["has","hidden"]]]`
		expr, err := Parse([]byte(input))
		require.NoError(t, err)

		assert.Equal(t, input, expr.String())
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, input := range []string{`[]`, `"get"`, `[1, 2]`, `{"op": "get"}`} {
			_, err := Parse([]byte(input))
			require.Error(t, err, input)
			assert.Equal(t, ErrMalformed, errorsx.Cause(err), input)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := Parse([]byte(`["get",`))
		require.Error(t, err)
		assert.NotEqual(t, ErrMalformed, errorsx.Cause(err))
	})
}

func TestIsExpression(t *testing.T) {
	assert.True(t, IsExpression([]interface{}{"get", "name"}))
	assert.True(t, IsExpression([]interface{}{"zoom"}))
	assert.False(t, IsExpression([]interface{}{"Open Sans Regular", "Arial Unicode MS Regular"}))
	assert.False(t, IsExpression([]interface{}{1.0, 2.0}))
	assert.False(t, IsExpression([]interface{}{}))
	assert.False(t, IsExpression("get"))
}
