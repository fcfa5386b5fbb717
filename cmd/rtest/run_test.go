package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rtest/internal/runner"
)

func resetFlags(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	flagRoots = nil
	flagFilePatterns = []string{"test_*.py", "*_test.py"}
	flagClassPatterns = []string{"Test*"}
	flagFunctionPatterns = []string{"test_*"}
	flagWorkers = "auto"
	flagMaxWorkers = 0
	flagDist = "load"
	flagEnv = nil
	flagStrategy = "pytest"
	flagPytestBinary = "pytest"
	flagPytestArgs = []string{"-q", "--no-header"}
	flagTimeout = 0
	flagGracePeriod = 0
	flagCollectOnly = false
	flagWatch = false
	flagReportJUnit = ""
	flagReportJSON = ""
	flagConfigFile = ""
	exitCode = 0
}

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return dir
}

func TestRunRtestCollectOnlyListsDiscoveredTests(t *testing.T) {
	resetFlags(t)
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test_sample.py"), []byte(
		"def test_one():\n    pass\n",
	), 0o644))

	flagCollectOnly = true
	cmd := &cobra.Command{}
	err := runRtest(cmd, nil)
	require.NoError(t, err)
	require.Equal(t, 0, exitCode)
}

func TestRunRtestNoTestsCollectedReportsExit5(t *testing.T) {
	resetFlags(t)
	chdirTemp(t)

	flagCollectOnly = true
	cmd := &cobra.Command{}
	err := runRtest(cmd, nil)
	require.NoError(t, err)
	require.Equal(t, 5, exitCode)
}

func TestRunRtestNonexistentRootReportsExit4(t *testing.T) {
	resetFlags(t)
	chdirTemp(t)

	flagRoots = []string{"does-not-exist"}
	cmd := &cobra.Command{}
	err := runRtest(cmd, nil)
	require.NoError(t, err)
	require.Equal(t, 4, exitCode)
}

func TestBuildConfigRejectsUnknownWorkersValue(t *testing.T) {
	resetFlags(t)
	flagWorkers = "not-a-number"
	_, err := buildConfig()
	require.Error(t, err)
}

func TestResolveStrategyRejectsUnknownStrategy(t *testing.T) {
	resetFlags(t)
	flagStrategy = "bogus"
	_, err := resolveStrategy()
	require.Error(t, err)
}

func TestResolveStrategyDefaultsToQuietNoHeaderPytestInvocation(t *testing.T) {
	resetFlags(t)
	strat, err := resolveStrategy()
	require.NoError(t, err)
	pytest, ok := strat.(runner.PytestStrategy)
	require.True(t, ok)
	require.Equal(t, []string{"-q", "--no-header"}, pytest.ExtraArgs)
}
