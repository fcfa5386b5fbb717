package subproject

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtest/internal/collect"
)

var markers = []string{"pyproject.toml", "setup.py"}

func TestDetectGroupsByNearestManifest(t *testing.T) {
	root := t.TempDir()
	serviceA := filepath.Join(root, "services", "a")
	serviceB := filepath.Join(root, "services", "b")
	require.NoError(t, os.MkdirAll(serviceA, 0755))
	require.NoError(t, os.MkdirAll(serviceB, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(serviceA, "pyproject.toml"), []byte(""), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(serviceB, "setup.py"), []byte(""), 0644))

	ids := []collect.Nodeid{
		collect.BuildNodeid("services/a/test_a.py", nil, "test_x", ""),
		collect.BuildNodeid("services/b/test_b.py", nil, "test_y", ""),
		collect.BuildNodeid("services/a/test_a.py", nil, "test_z", ""),
	}

	groups, err := Detect(root, ids, markers)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, serviceA, groups[0].WorkingDirectory)
	assert.Len(t, groups[0].Nodeids, 2)
	assert.Equal(t, serviceB, groups[1].WorkingDirectory)
	assert.Len(t, groups[1].Nodeids, 1)
}

func TestDetectFallsBackToSessionRoot(t *testing.T) {
	root := t.TempDir()
	ids := []collect.Nodeid{
		collect.BuildNodeid("tests/test_a.py", nil, "test_x", ""),
	}

	groups, err := Detect(root, ids, markers)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, filepath.Clean(root), groups[0].WorkingDirectory)
}

func TestDetectPreservesInputOrderWithinGroup(t *testing.T) {
	root := t.TempDir()
	ids := []collect.Nodeid{
		collect.BuildNodeid("tests/test_b.py", nil, "test_2", ""),
		collect.BuildNodeid("tests/test_a.py", nil, "test_1", ""),
	}

	groups, err := Detect(root, ids, markers)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, ids, groups[0].Nodeids)
}
