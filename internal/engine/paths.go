// Package engine derives toolchain paths and build-script arguments from a
// project's configuration. Everything here is pure string manipulation;
// existence checks live with the config validation.
package engine

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const ProjectExt = ".uproject"

func ProjectDir(projectPath string) string {
	return filepath.Dir(projectPath)
}

// ProjectName is the project file's base name with the extension stripped.
func ProjectName(projectPath string) string {
	base := filepath.Base(projectPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func SolutionPath(projectPath string) string {
	return filepath.Join(ProjectDir(projectPath), ProjectName(projectPath)+".sln")
}

// EngineRoot walks four directories up from the editor executable, e.g.
// <root>/Engine/Binaries/Win64/UnrealEditor.exe.
func EngineRoot(enginePath string) string {
	root := enginePath
	for i := 0; i < 4; i++ {
		root = filepath.Dir(root)
	}
	return root
}

// BuildScriptPath locates the build script under the engine root. The script
// lives at a fixed relative path that differs per host OS.
func BuildScriptPath(engineRoot string) string {
	batchDir := filepath.Join(engineRoot, "Engine", "Build", "BatchFiles")
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(batchDir, "Build.bat")
	case "darwin":
		return filepath.Join(batchDir, "Mac", "Build.sh")
	default:
		return filepath.Join(batchDir, "Linux", "Build.sh")
	}
}

func HostPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "Win64"
	case "darwin":
		return "Mac"
	default:
		return "Linux"
	}
}

// BuildArgs assembles the positional arguments the build script expects for
// an editor-target compile, optionally in project-file-generation mode.
func BuildArgs(projectPath, buildFlavor string, generateProjectFiles bool) []string {
	args := []string{
		ProjectName(projectPath) + "Editor",
		HostPlatform(),
		buildFlavor,
		fmt.Sprintf("-Project=%s", projectPath),
		"-WaitMutex",
		"-FromMsBuild",
		"-architecture=x64",
	}
	if generateProjectFiles {
		args = append(args, "-GenerateProjectFiles")
	}
	return args
}

// CleanTargets lists the generated directories a clean removes, in the order
// they are removed.
func CleanTargets(projectDir string) []string {
	return []string{
		filepath.Join(projectDir, "Intermediate"),
		filepath.Join(projectDir, "Binaries"),
		filepath.Join(projectDir, "Saved", "StagedBuilds"),
	}
}
