package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtest/internal/collect"
	"rtest/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newDiscoverer(t *testing.T) *Discoverer {
	t.Helper()
	d, err := New(config.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestDiscoverFindsPlainAndClassScopedTests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test_a.py", `
class TestThing:
    def test_method(self):
        pass

def test_plain():
    pass

def helper():
    pass
`)

	d := newDiscoverer(t)
	result := d.Discover(dir, []string{dir})

	require.Empty(t, result.Errors)
	ids := make([]string, len(result.Nodeids))
	for i, id := range result.Nodeids {
		ids[i] = string(id)
	}
	assert.Contains(t, ids, "test_a.py::TestThing::test_method")
	assert.Contains(t, ids, "test_a.py::test_plain")
	assert.NotContains(t, ids, "test_a.py::helper")
}

func TestDiscoverNonExistentRootYieldsDistinctErrorKind(t *testing.T) {
	d := newDiscoverer(t)
	result := d.Discover(".", []string{"/does/not/exist/at/all"})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, collect.ErrorRootNotFound, result.Errors[0].Kind)
	assert.Empty(t, result.Nodeids)
}

func TestDiscoverToleratesParseErrorAdjacentToValidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test_bad.py", "def test_broken(:\n  pass\n")
	writeFile(t, dir, "test_good.py", "def test_ok():\n    pass\n")

	d := newDiscoverer(t)
	result := d.Discover(dir, []string{dir})

	var sawParseError bool
	for _, e := range result.Errors {
		if e.Kind == collect.ErrorParse && e.File == "test_bad.py" {
			sawParseError = true
		}
	}
	assert.True(t, sawParseError)

	var ids []string
	for _, id := range result.Nodeids {
		ids = append(ids, string(id))
	}
	assert.Contains(t, ids, "test_good.py::test_ok")
}

func TestDiscoverKeepsCandidatesOutsideBrokenRegionOfSameFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test_partial.py", `
def test_broken(:
    pass

def test_fine():
    pass
`)

	d := newDiscoverer(t)
	result := d.Discover(dir, []string{dir})

	var sawParseError bool
	for _, e := range result.Errors {
		if e.Kind == collect.ErrorParse && e.File == "test_partial.py" {
			sawParseError = true
		}
	}
	assert.True(t, sawParseError)

	var ids []string
	for _, id := range result.Nodeids {
		ids = append(ids, string(id))
	}
	assert.Contains(t, ids, "test_partial.py::test_fine")
}

func TestDiscoverExpandsParametrizedFunction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test_p.py", `
import rtest

@rtest.mark.parametrize("v", [1, 2, 3])
def test_v(v):
    pass
`)

	d := newDiscoverer(t)
	result := d.Discover(dir, []string{dir})

	require.Empty(t, result.Errors)
	var ids []string
	for _, id := range result.Nodeids {
		ids = append(ids, string(id))
	}
	assert.ElementsMatch(t, []string{
		"test_p.py::test_v[1]",
		"test_p.py::test_v[2]",
		"test_p.py::test_v[3]",
	}, ids)
}

func TestDiscoverUnresolvableEmitsWarningAndUnexpandedID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test_z.py", `
import rtest

@rtest.mark.parametrize("v", get_data())
def test_z(v):
    pass
`)

	d := newDiscoverer(t)
	result := d.Discover(dir, []string{dir})

	require.Len(t, result.Nodeids, 1)
	assert.Equal(t, collect.Nodeid("test_z.py::test_z"), result.Nodeids[0])

	require.Len(t, result.Errors, 1)
	assert.Equal(t, collect.ErrorSemanticWarning, result.Errors[0].Kind)
	assert.Contains(t, result.Errors[0].Message, "get_data")
}

func TestDiscoverIsDeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "test_a.py", "def test_a():\n    pass\n")
	writeFile(t, dir, "test_b.py", "def test_b():\n    pass\n")

	d := newDiscoverer(t)
	first := d.Discover(dir, []string{dir})
	second := d.Discover(dir, []string{dir})

	assert.Equal(t, first.Nodeids, second.Nodeids)
}
