package aggregate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtest/internal/collect"
	"rtest/internal/runner"
)

func TestMergeZeroOutcomesMeansNoTestsCollected(t *testing.T) {
	out := Merge(nil, nil)
	assert.Equal(t, 5, out.ExitCode)
}

func TestMergeZeroTestsCollectedOverridesCollectionErrors(t *testing.T) {
	errs := []collect.CollectionError{{File: "a.py", Kind: collect.ErrorParse, Message: "bad syntax"}}
	out := Merge(nil, errs)
	assert.Equal(t, 5, out.ExitCode)
	assert.Len(t, out.CollectionErrors, 1)
}

func TestMergeTakesMaxOfKnownExitCodes(t *testing.T) {
	outcomes := []runner.Outcome{
		{Nodeids: []collect.Nodeid{"a.py::t1"}, ExitCode: 0},
		{Nodeids: []collect.Nodeid{"b.py::t2"}, ExitCode: 1},
	}
	out := Merge(outcomes, nil)
	assert.Equal(t, 1, out.ExitCode)
}

func TestMergeDetectsCancellation(t *testing.T) {
	outcomes := []runner.Outcome{
		{Nodeids: []collect.Nodeid{"a.py::t1"}, ExitCode: 2, Err: context.Canceled},
	}
	out := Merge(outcomes, nil)
	assert.True(t, out.Cancelled)
	assert.False(t, out.TimedOut)
}

func TestMergeFailedReturnsNodeidsFromNonZeroWorkers(t *testing.T) {
	outcomes := []runner.Outcome{
		{Nodeids: []collect.Nodeid{"a.py::t1"}, ExitCode: 0},
		{Nodeids: []collect.Nodeid{"b.py::t2", "b.py::t3"}, ExitCode: 1},
	}
	out := Merge(outcomes, nil)
	assert.Equal(t, []collect.Nodeid{"b.py::t2", "b.py::t3"}, out.Failed())
	assert.Equal(t, 3, out.TotalNodeids())
}

func TestWriteJSONRoundTrips(t *testing.T) {
	outcomes := []runner.Outcome{
		{Nodeids: []collect.Nodeid{"a.py::t1"}, ExitCode: 0, Duration: 10 * time.Millisecond},
		{Nodeids: []collect.Nodeid{"b.py::t2"}, ExitCode: 1, Duration: 5 * time.Millisecond},
	}
	out := Merge(outcomes, nil)

	data, err := WriteJSON(out)
	require.NoError(t, err)

	var decoded jsonReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.ExitCode)
	require.Len(t, decoded.Tests, 2)
	assert.True(t, decoded.Tests[0].Success)
	assert.False(t, decoded.Tests[1].Success)
}

func TestWriteJUnitXMLIncludesFailures(t *testing.T) {
	outcomes := []runner.Outcome{
		{Nodeids: []collect.Nodeid{"a.py::t1"}, ExitCode: 0},
		{Nodeids: []collect.Nodeid{"b.py::t2"}, ExitCode: 1, Stderr: "assertion failed"},
	}
	out := Merge(outcomes, nil)

	data, err := WriteJUnitXML(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "testsuites")
	assert.Contains(t, string(data), "assertion failed")
}
