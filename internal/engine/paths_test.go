package engine

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectName_StripsExtension(t *testing.T) {
	p := filepath.Join("proj", "Game.uproject")
	require.Equal(t, "Game", ProjectName(p))
}

func TestSolutionPath_SiblingOfProjectFile(t *testing.T) {
	p := filepath.Join("proj", "Game.uproject")
	require.Equal(t, filepath.Join("proj", "Game.sln"), SolutionPath(p))
}

func TestEngineRoot_FourDirectoriesUp(t *testing.T) {
	editor := filepath.Join("opt", "engine", "Engine", "Binaries", "Linux", "UnrealEditor")
	require.Equal(t, filepath.Join("opt", "engine"), EngineRoot(editor))
}

func TestBuildScriptPath_UnderEngineRoot(t *testing.T) {
	script := BuildScriptPath(filepath.Join("opt", "engine"))
	require.True(t, strings.HasPrefix(script, filepath.Join("opt", "engine", "Engine", "Build", "BatchFiles")))
}

func TestBuildArgs_EditorTarget(t *testing.T) {
	p := filepath.Join("proj", "Game.uproject")
	args := BuildArgs(p, "Development", false)

	require.Equal(t, "GameEditor", args[0])
	require.Equal(t, HostPlatform(), args[1])
	require.Equal(t, "Development", args[2])
	require.Contains(t, args, "-Project="+p)
	require.Contains(t, args, "-WaitMutex")
	require.Contains(t, args, "-FromMsBuild")
	require.Contains(t, args, "-architecture=x64")
	require.NotContains(t, args, "-GenerateProjectFiles")
}

func TestBuildArgs_GenerateMode(t *testing.T) {
	args := BuildArgs(filepath.Join("proj", "Game.uproject"), "Development", true)
	require.Equal(t, "-GenerateProjectFiles", args[len(args)-1])
}

func TestCleanTargets_OrderAndLocations(t *testing.T) {
	targets := CleanTargets("proj")
	require.Equal(t, []string{
		filepath.Join("proj", "Intermediate"),
		filepath.Join("proj", "Binaries"),
		filepath.Join("proj", "Saved", "StagedBuilds"),
	}, targets)
}
