package pyast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
import pytest

COUNT = 3

class Color:
    RED = 1
    BLUE = 2

class TestOuter:
    class TestInner:
        def test_nested(self):
            pass

    @pytest.mark.parametrize("x", [1, 2, 3])
    def test_parametrized(self, x):
        pass

def test_plain():
    pass

async def test_async_plain():
    pass
`

func TestParseExtractsFunctionsAndClasses(t *testing.T) {
	p := New()
	defer p.Close()

	mod, err := p.Parse("tests/test_sample.py", []byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "3", mod.Assignments["COUNT"])

	assert.Contains(t, mod.EnumMembers["Color"], "RED")
	assert.Equal(t, "1", mod.EnumMembers["Color"]["RED"])
	assert.Equal(t, "2", mod.EnumMembers["Color"]["BLUE"])

	var names []string
	for _, f := range mod.Functions {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "test_nested")
	assert.Contains(t, names, "test_parametrized")
	assert.Contains(t, names, "test_plain")
	assert.Contains(t, names, "test_async_plain")

	for _, f := range mod.Functions {
		if f.Name == "test_nested" {
			assert.Equal(t, []string{"TestOuter", "TestInner"}, f.ClassChain)
		}
		if f.Name == "test_parametrized" {
			assert.Equal(t, []string{"TestOuter"}, f.ClassChain)
			require.Len(t, f.Decorators, 1)
			assert.Equal(t, "pytest.mark.parametrize", f.Decorators[0].Name)
			assert.Equal(t, `"x", [1, 2, 3]`, f.Decorators[0].ArgsText)
		}
		if f.Name == "test_async_plain" {
			assert.True(t, f.IsAsync)
			assert.Empty(t, f.ClassChain)
		}
	}
}

func TestParseReportsSyntaxError(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse("tests/bad.py", []byte("def test_broken(:\n    pass\n"))
	require.Error(t, err)
	var synErr *SyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestParseNeverPanicsOnEmptyFile(t *testing.T) {
	p := New()
	defer p.Close()

	mod, err := p.Parse("tests/empty.py", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, mod.Functions)
	assert.Empty(t, mod.Classes)
}
