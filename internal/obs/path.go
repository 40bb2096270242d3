package obs

import "strings"

// collections whose immediate child segment is an opaque identifier.
var idCollections = map[string]struct{}{
	"users": {},
	"pqrs":  {},
}

// fixed child segments that are routes of their own, not identifiers.
var fixedSegments = map[string]struct{}{
	"my":       {},
	"assigned": {},
	"overdue":  {},
}

// CanonicalPath collapses resource identifiers so metric labels stay low-cardinality.
// "/v1/pqrs/01ABC/assign" becomes "/v1/pqrs/:id/assign".
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 || segments[0] != "v1" {
		return path
	}
	if _, ok := idCollections[segments[1]]; !ok {
		return path
	}
	if len(segments) > 4 {
		return path
	}
	if _, ok := fixedSegments[segments[2]]; ok {
		return path
	}
	segments[2] = ":id"
	return "/" + strings.Join(segments, "/")
}
