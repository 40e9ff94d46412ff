// Package pathutil provides path manipulation for slash-separated virtual paths.
//
// Every path that crosses a package boundary inside vfs is in normalized
// form: forward slashes, no leading or trailing slash, no empty or "."
// segments. The root of a storage location is the empty string.
package pathutil

import "strings"

// Normalize converts a caller-provided relative path to normalized form.
//
// It performs the following transformations:
//   - Converts backslashes to forward slashes: `a\b` → "a/b"
//   - Strips leading and trailing slashes: "/a/b/" → "a/b"
//   - Collapses consecutive slashes: "a//b" → "a/b"
//   - Drops "." segments: "./a/./b" → "a/b"
//   - Converts the root to the empty string: "/", ".", "" → ""
//
// Comparison is case-sensitive. ".." segments are preserved; callers that
// need containment use [Escapes] to reject them.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")

	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// Escapes reports whether a normalized path climbs out of its root.
func Escapes(p string) bool {
	for _, part := range Segments(p) {
		if part == ".." {
			return true
		}
	}
	return false
}

// Join joins normalized path elements, skipping empty ones.
func Join(elem ...string) string {
	var b strings.Builder
	for _, e := range elem {
		e = Normalize(e)
		if e == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(e)
	}
	return b.String()
}

// Base returns the last element of a slash-separated path.
// If path is empty, it returns "".
func Base(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Dir returns all but the last element of a normalized path.
// The parent of a top-level name is the root ("").
func Dir(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// DirPrefix converts a normalized directory path to its prefix form.
// For the root, returns "" (empty prefix matches all).
// For other paths, appends "/" to match children.
func DirPrefix(name string) string {
	if name == "" {
		return ""
	}
	return name + "/"
}

// Child extracts the immediate child name from a full path given a prefix.
// Returns the child name and whether it's a subdirectory (has more path components).
// If path doesn't have the prefix, behavior is undefined.
func Child(path, prefix string) (name string, isSubDir bool) {
	relPath := strings.TrimPrefix(path, prefix)
	if idx := strings.Index(relPath, "/"); idx >= 0 {
		return relPath[:idx], true
	}
	return relPath, false
}

// Segments splits a normalized path into its elements.
// The root yields no segments.
func Segments(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Ancestors returns every proper ancestor directory of a normalized path,
// shallowest first, excluding the root.
//
//	Ancestors("a/b/c.txt") → ["a", "a/b"]
func Ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}
