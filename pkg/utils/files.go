package utils

import (
	"os"
	"path/filepath"
	"strings"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// OutputPath is where the compiled form of src goes: out when it is set,
// otherwise src next to itself with its extension swapped for ext.
func OutputPath(src, out, ext string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ext
}

// ReadSource reads a source file and returns its text and absolute path.
func ReadSource(path string) (text string, fullPath string, err error) {
	fullPath, _, err = GetPathInfo(path)
	if err != nil {
		return "", "", err
	}
	b, err := os.ReadFile(fullPath)
	if err != nil {
		return "", "", err
	}
	return string(b), fullPath, nil
}

// WriteOutput writes data to path, creating the parent directory if needed.
func WriteOutput(path string, data []byte) error {
	_, dir, err := GetPathInfo(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
