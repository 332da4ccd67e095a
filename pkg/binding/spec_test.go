package binding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecBuildRejectsPositionalOnlyAfterKeyword(t *testing.T) {
	_, err := NewSpec("f").Param("a").Positional("b").Build()
	require.Error(t, err)
}

func TestSpecBuildRejectsDuplicateNames(t *testing.T) {
	_, err := NewSpec("f").Param("a").Param("a").Build()
	require.Error(t, err)
}

func TestSpecBuildOK(t *testing.T) {
	s, err := NewSpec("f").Positional("a").Param("b").Vararg("rest").Kwargs("opts").Build()
	require.NoError(t, err)
	require.Equal(t, 1, s.NumPositionalOnly())
	require.True(t, s.HasVararg)
	require.True(t, s.HasKwargs)
}
