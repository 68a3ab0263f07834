package session

import (
	"path/filepath"
	"strings"
)

// UnknownProject is reported when a path carries no usable directory.
const UnknownProject = "_unknown"

// structuralDirs are directory names that organise code inside a project
// rather than name one.
var structuralDirs = map[string]bool{
	"src": true, "lib": true, "libs": true, "components": true, "internal": true,
	"pkg": true, "cmd": true, "app": true, "apps": true, "packages": true,
	"test": true, "tests": true, "spec": true, "__tests__": true,
	"utils": true, "util": true, "helpers": true, "common": true, "shared": true,
	"scripts": true, "public": true, "static": true, "assets": true, "styles": true,
	"pages": true, "views": true, "models": true, "controllers": true,
	"services": true, "hooks": true, "store": true, "routes": true,
	"dist": true, "build": true, "out": true, "bin": true, "target": true,
	"include": true, "main": true, "java": true, "kotlin": true, "resources": true,
	"core": true, "modules": true, "vendor": true, "node_modules": true,
}

// DetectProject infers a project name from a file path by walking the
// directory segments upward from the file, skipping structural names.
// Falls back to the immediate parent directory.
func DetectProject(filePath string) string {
	if filePath == "" {
		return UnknownProject
	}
	// Editors on Windows deliver backslash paths regardless of host OS.
	p := filepath.Clean(strings.ReplaceAll(filePath, `\`, "/"))

	dir := filepath.Dir(p)
	parent := filepath.Base(dir)
	if !usable(parent) {
		return UnknownProject
	}

	for d := dir; ; {
		name := filepath.Base(d)
		if !usable(name) {
			break
		}
		if !structuralDirs[strings.ToLower(name)] && !strings.HasPrefix(name, ".") {
			return name
		}
		next := filepath.Dir(d)
		if next == d {
			break
		}
		d = next
	}

	return parent
}

func usable(name string) bool {
	return name != "" && name != "." && name != "/" && !strings.HasSuffix(name, ":")
}
