package webrouter

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// RouteTable maps a (method, exact path) pair to the RenderStrategy serving it.
// Only the methods in SupportedMethods can be registered.
//
// A RouteTable is meant to be filled before the server starts and only read while
// requests are served; lookups take no locks, so registering routes concurrently
// with serving is not supported.
type RouteTable struct {
	routes map[HttpMethod]map[string]RenderStrategy
}

// NewRouteTable creates an empty route table for the supported methods.
func NewRouteTable() *RouteTable {
	routes := make(map[HttpMethod]map[string]RenderStrategy, len(SupportedMethods))
	for _, m := range SupportedMethods {
		routes[m] = map[string]RenderStrategy{}
	}
	return &RouteTable{routes: routes}
}

// Register binds route to every combination of methods and paths. Methods are
// matched case-insensitively; those outside the supported set are skipped without
// error. Registering an existing pair replaces its strategy.
//
// Example:
//
//	table.Register([]string{"get", "post"}, []string{"/", "/index.html"}, route)
//	// GET /, GET /index.html, POST /, POST /index.html
func (self *RouteTable) Register(methods []string, paths []string, route RenderStrategy) {
	for _, path := range paths {
		for _, raw := range methods {
			byPath, ok := self.routes[MethodFromString(raw)]
			if !ok {
				continue
			}
			byPath[path] = route
		}
	}
}

// Supports reports whether method is in the table's method set.
func (self *RouteTable) Supports(method string) bool {
	_, ok := self.routes[MethodFromString(method)]
	return ok
}

// Resolve looks up the strategy registered for method and path. The path must match
// exactly: no percent-decoding, trailing-slash or case normalization is applied.
func (self *RouteTable) Resolve(method string, path string) (RenderStrategy, bool) {
	byPath, ok := self.routes[MethodFromString(method)]
	if !ok {
		return nil, false
	}
	route, ok := byPath[path]
	return route, ok
}

// Len returns the number of registered (method, path) pairs.
func (self *RouteTable) Len() int {
	n := 0
	for _, byPath := range self.routes {
		n += len(byPath)
	}
	return n
}

// PrintTree writes every registered path with the methods it answers to and the
// strategy serving it, sorted by path:
//
//	/ [GET] template
//	/testjson [GET, POST] json
func (self *RouteTable) PrintTree(w io.Writer) {
	type entry struct {
		methods []string
		kinds   map[string]struct{}
	}
	byPath := map[string]*entry{}
	for _, m := range SupportedMethods {
		for path, route := range self.routes[m] {
			e, ok := byPath[path]
			if !ok {
				e = &entry{kinds: map[string]struct{}{}}
				byPath[path] = e
			}
			e.methods = append(e.methods, m.String())
			e.kinds[strategyName(route)] = struct{}{}
		}
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		e := byPath[path]
		kinds := make([]string, 0, len(e.kinds))
		for k := range e.kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintf(w, "%s [%s] %s\n", path, strings.Join(e.methods, ", "), strings.Join(kinds, ", "))
	}
}

func strategyName(route RenderStrategy) string {
	switch route.(type) {
	case *TextRoute:
		return "text"
	case *JSONRoute:
		return "json"
	case *FileRoute:
		return "file"
	case *TemplateRoute:
		return "template"
	default:
		return "unknown"
	}
}
