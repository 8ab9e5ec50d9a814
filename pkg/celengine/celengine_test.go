package celengine

import (
	"testing"

	"github.com/google/cel-go/cel"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	e, err := New(
		Variable{Name: "level", Type: cel.StringType},
		Variable{Name: "points", Type: cel.IntType},
	)
	require.NoError(t, err)

	ok, err := e.Evaluate(`level in ["gold", "platinum"] && points >= 100`, map[string]any{"level": "gold", "points": int64(150)})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Evaluate(`level in ["gold", "platinum"] && points >= 100`, map[string]any{"level": "bronze", "points": int64(150)})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValidate(t *testing.T) {
	e, err := New(Variable{Name: "points", Type: cel.IntType})
	require.NoError(t, err)

	require.NoError(t, e.Validate("points > 10"))
	require.Error(t, e.Validate("points +"))
	require.Error(t, e.Validate("points + 1"))
	require.Error(t, e.Validate("unknown == 1"))
}
