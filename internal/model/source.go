// Package model defines the data structures shared by the mod importer.
package model

import (
	"path"
	"strings"
)

// Path is a slash-separated path relative to the content root.
type Path string

// NormalizePath converts backslashes to forward slashes and cleans the result.
func NormalizePath(raw string) Path {
	p := strings.ReplaceAll(raw, `\`, "/")
	p = path.Clean(p)

	return Path(strings.TrimPrefix(p, "./"))
}

// Join joins path elements onto p.
func (p Path) Join(elem ...string) Path {
	parts := append([]string{string(p)}, elem...)
	return NormalizePath(path.Join(parts...))
}

// Dir returns the parent directory of p.
func (p Path) Dir() Path {
	return Path(path.Dir(string(p)))
}

// Base returns the last element of p.
func (p Path) Base() string {
	return path.Base(string(p))
}

// Ext returns the lower-cased file extension of p, including the dot.
func (p Path) Ext() string {
	return strings.ToLower(path.Ext(string(p)))
}

// Within reports whether p is root itself or lies below it.
func (p Path) Within(root Path) bool {
	if root == "" || root == "." {
		return !p.Escapes()
	}

	return p == root || strings.HasPrefix(string(p), string(root)+"/")
}

// Escapes reports whether p climbs out of the content root.
func (p Path) Escapes() bool {
	s := string(p)
	return s == ".." || strings.HasPrefix(s, "../") || strings.HasPrefix(s, "/")
}

func (p Path) String() string {
	return string(p)
}
