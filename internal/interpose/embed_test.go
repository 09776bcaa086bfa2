package interpose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceVersion_Deterministic(t *testing.T) {
	a, err := SourceVersion()
	require.NoError(t, err)
	b, err := SourceVersion()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}
