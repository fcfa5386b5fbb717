package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtest/internal/config"
)

func TestCompileDefaultPatternsMatchesExamples(t *testing.T) {
	set, err := Compile(config.DefaultPatterns())
	require.NoError(t, err)

	assert.True(t, set.MatchFile("test_models.py"))
	assert.True(t, set.MatchFile("models_test.py"))
	assert.False(t, set.MatchFile("models.py"))
	assert.False(t, set.MatchFile("test_models.txt"))

	assert.True(t, set.MatchClass("TestModels"))
	assert.False(t, set.MatchClass("Models"))
	assert.False(t, set.MatchClass("testmodels"))

	assert.True(t, set.MatchFunction("test_create"))
	assert.False(t, set.MatchFunction("create_test"))
}

func TestCompileRejectsInvalidPattern(t *testing.T) {
	_, err := Compile(config.Patterns{Files: []string{"test_["}})
	assert.Error(t, err)
}

func TestMatchIsCaseSensitive(t *testing.T) {
	set, err := Compile(config.Patterns{Classes: []string{"Test*"}})
	require.NoError(t, err)
	assert.True(t, set.MatchClass("TestFoo"))
	assert.False(t, set.MatchClass("testFoo"))
}

func TestEmptyPatternListMatchesNothing(t *testing.T) {
	set, err := Compile(config.Patterns{})
	require.NoError(t, err)
	assert.False(t, set.MatchFile("test_anything.py"))
	assert.False(t, set.MatchClass("TestAnything"))
	assert.False(t, set.MatchFunction("test_anything"))
}
