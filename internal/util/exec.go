package util

import "os/exec"

// ResolveExecutable returns the path to a capture binary.
// If customPath is set, it must resolve to an executable; otherwise name is
// searched for in the system PATH. Returns an empty string if nothing is found.
func ResolveExecutable(customPath, name string) string {
	if customPath != "" {
		if _, err := exec.LookPath(customPath); err == nil {
			return customPath
		}
		return ""
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}
