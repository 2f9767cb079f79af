package webrouter

import "strings"

// RouteGroup represents a collection of related routes that can be mounted together
// under a common path prefix.
//
// Example:
//
//	api := webrouter.NewRouteGroup(
//	    webrouter.GetRoute("/health", webrouter.NewTextRoute(health)),
//	    webrouter.PostRoute("/upload", webrouter.NewJSONRoute(upload)),
//	)
//	router.AddRouteGroup("/api", api)
//	// Registers: GET /api/health, POST /api/upload
type RouteGroup struct {
	Routes []GroupedRoute
}

// GroupedRoute is one entry of a RouteGroup. Paths are relative to the prefix the
// group is mounted under.
type GroupedRoute struct {
	Methods []string
	Paths   []string
	Route   RenderStrategy
}

// NewRouteGroup creates a new route group from a variable number of grouped routes.
func NewRouteGroup(routes ...GroupedRoute) *RouteGroup {
	return &RouteGroup{
		Routes: routes,
	}
}

// Add appends a route answering to methods on paths.
func (rg *RouteGroup) Add(methods []string, paths []string, route RenderStrategy) *RouteGroup {
	rg.Routes = append(rg.Routes, GroupedRoute{Methods: methods, Paths: paths, Route: route})
	return rg
}

// GetRoute creates a GET route configuration for use in route groups.
func GetRoute(path string, route RenderStrategy) GroupedRoute {
	return GroupedRoute{Methods: []string{string(Get)}, Paths: []string{path}, Route: route}
}

// PostRoute creates a POST route configuration for use in route groups.
func PostRoute(path string, route RenderStrategy) GroupedRoute {
	return GroupedRoute{Methods: []string{string(Post)}, Paths: []string{path}, Route: route}
}

// PutRoute creates a PUT route configuration for use in route groups.
func PutRoute(path string, route RenderStrategy) GroupedRoute {
	return GroupedRoute{Methods: []string{string(Put)}, Paths: []string{path}, Route: route}
}

// mount registers every route of the group into table under prefix. The prefix is
// normalized to start and end with "/", and each route path loses its leading "/",
// so "/api" + "/health" and "api/" + "health" both give "/api/health". A route path
// of "" or "/" maps to the prefix itself with its trailing slash.
func (rg *RouteGroup) mount(table *RouteTable, prefix string) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for _, grouped := range rg.Routes {
		paths := make([]string, len(grouped.Paths))
		for i, path := range grouped.Paths {
			paths[i] = prefix + strings.TrimPrefix(path, "/")
		}
		table.Register(grouped.Methods, paths, grouped.Route)
	}
}
