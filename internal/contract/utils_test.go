package contract

import (
	"testing"

	"github.com/huangsam/perfwatch/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	assert.Equal(t, "Regression", GetPlainLabel(schema.Regression))
	assert.Equal(t, "Improvement", GetPlainLabel(schema.Improvement))
	assert.Equal(t, "Unchanged", GetPlainLabel(schema.Unchanged))
	assert.Contains(t, GetColorLabel(schema.Regression), "Regression")
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"build", "tests"}, SplitList(" build, ,tests ,"))
	assert.Nil(t, SplitList(""))
}

func TestTruncatePathAndShortHash(t *testing.T) {
	assert.Equal(t, "...c/d.go", TruncatePath("a/b/c/d.go", 9))
	assert.Equal(t, "a.go", TruncatePath("a.go", 9))
	assert.Equal(t, "0123456789ab", ShortHash("0123456789abcdef"))
	assert.Equal(t, "abc", ShortHash("abc"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger("chatty")
	assert.Error(t, err)
}
