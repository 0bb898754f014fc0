package fonts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStandard(t *testing.T) {
	for _, path := range []string{"standard", "embed:standard.cxf", "cxf/standard.cxf"} {
		data, err := Load(path)
		require.NoError(t, err, path)
		assert.True(t, bytes.HasPrefix(data, []byte("# Format:")), path)
	}
	_, err := Load("embed:missing.cxf")
	assert.Error(t, err)
}

func TestStrokeNames(t *testing.T) {
	assert.Contains(t, StrokeNames(), StandardStroke)
}

func TestOutlineFaces(t *testing.T) {
	faces := [][]byte{Outline(false, false), Outline(true, false), Outline(false, true), Outline(true, true)}
	for i, a := range faces {
		require.NotEmpty(t, a)
		for j := i + 1; j < len(faces); j++ {
			assert.False(t, bytes.Equal(a, faces[j]), "字形 %d 与 %d 不应相同", i, j)
		}
	}
}
