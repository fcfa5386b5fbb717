package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNodeidNoClassNoParam(t *testing.T) {
	id := BuildNodeid("tests/test_a.py", nil, "test_x", "")
	assert.Equal(t, Nodeid("tests/test_a.py::test_x"), id)
}

func TestBuildNodeidWithClassChainAndParam(t *testing.T) {
	id := BuildNodeid("tests/test_a.py", []string{"TestOuter", "TestInner"}, "test_q", "1")
	assert.Equal(t, Nodeid("tests/test_a.py::TestOuter::TestInner::test_q[1]"), id)
}

func TestParseRoundTrip(t *testing.T) {
	cases := []struct {
		path    string
		classes []string
		fn      string
		param   string
	}{
		{"tests/test_a.py", nil, "test_x", "1"},
		{"tests/test_a.py", nil, "test_z", ""},
		{"tests/test_a.py", []string{"TestOuter", "TestInner"}, "test_q", ""},
		{"a/b/c.py", []string{"Test"}, "test_y", "hello-2"},
	}

	for _, c := range cases {
		id := BuildNodeid(c.path, c.classes, c.fn, c.param)
		parsed, err := Parse(id)
		require.NoError(t, err)
		assert.Equal(t, c.fn, parsed.Function)
		assert.Equal(t, c.param, parsed.ParamID)
		if len(c.classes) == 0 {
			assert.Empty(t, parsed.ClassChain)
		} else {
			assert.Equal(t, c.classes, parsed.ClassChain)
		}
	}
}

func TestParseRejectsMissingSeparator(t *testing.T) {
	_, err := Parse(Nodeid("not-a-nodeid"))
	assert.Error(t, err)
}

func TestParseRejectsUnterminatedParam(t *testing.T) {
	_, err := Parse(Nodeid("tests/test_a.py::test_x[1"))
	assert.Error(t, err)
}

func TestScopeKey(t *testing.T) {
	withClass, err := Parse(Nodeid("a.py::TestA::test_x"))
	require.NoError(t, err)
	assert.Equal(t, "a.py::TestA", withClass.ScopeKey())

	moduleOnly, err := Parse(Nodeid("a.py::test_x"))
	require.NoError(t, err)
	assert.Equal(t, "a.py", moduleOnly.ScopeKey())
}
