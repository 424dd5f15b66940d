package sitehandler

import (
	"io/fs"
	"path"
	"strings"
)

// resolvePath maps a path below /static/ to a regular file in fsys. Only
// plain file names with an extension resolve. Directories, empty or dot
// segments, hidden files and anything ambiguous are not found.
func resolvePath(rel string, fsys fs.FS) (string, bool) {
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	if strings.Contains(rel, "\x00") || strings.Contains(rel, "\\") || strings.Contains(rel, "..") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	name := strings.TrimPrefix(path.Clean("/"+rel), "/")
	if path.Ext(name) == "" || !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
