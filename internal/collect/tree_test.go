package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndFlattenPreservesOrder(t *testing.T) {
	ids := []Nodeid{
		"tests/test_a.py::test_x[1]",
		"tests/test_a.py::test_x[2]",
		"tests/test_a.py::TestOuter::TestInner::test_q",
		"tests/test_b.py::test_y",
	}

	sess := NewSession(".", []string{"."}, nil)
	tree, err := Build(sess, ids)
	require.NoError(t, err)

	assert.Equal(t, ids, tree.Flatten())
	assert.Len(t, tree.Modules, 2)
}

func TestLookupResolvesNodeid(t *testing.T) {
	ids := []Nodeid{"tests/test_a.py::TestOuter::test_q"}
	tree, err := Build(NewSession(".", nil, nil), ids)
	require.NoError(t, err)

	node, ok := tree.Lookup(ids[0])
	require.True(t, ok)
	assert.Equal(t, KindFunction, node.Kind)
	assert.Equal(t, "test_q", node.Name)
	assert.Equal(t, ids[0], node.Nodeid())
}

func TestBuildRejectsDuplicateNodeid(t *testing.T) {
	ids := []Nodeid{
		"tests/test_a.py::test_x",
		"tests/test_a.py::test_x",
	}
	_, err := Build(NewSession(".", nil, nil), ids)
	assert.Error(t, err)
}

func TestBuildRejectsMalformedNodeid(t *testing.T) {
	_, err := Build(NewSession(".", nil, nil), []Nodeid{"not-valid"})
	assert.Error(t, err)
}

func TestSessionAccumulatesErrors(t *testing.T) {
	sess := NewSession(".", nil, nil)
	sess.AddError(CollectionError{File: "tests/bad.py", Kind: ErrorParse, Message: "syntax error"})
	require.Len(t, sess.Errors(), 1)
	assert.Equal(t, ErrorParse, sess.Errors()[0].Kind)
}
