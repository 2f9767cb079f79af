package main

import (
	"github.com/Sembiance/webrouter"
)

// registerDemoRoutes installs the routes the server ships with: a greeting page at
// "/" and "/index.html" and a JSON document at "/testjson".
func registerDemoRoutes(router *webrouter.Router, templatesDir string) {
	router.AddTemplateRoute([]string{"GET"}, []string{"/", "/index.html"}, templatesDir, "test",
		func(req *webrouter.RouteRequest) (any, error) {
			return map[string]string{"name": "Roberto"}, nil
		})
	router.AddJSONRoute([]string{"get"}, []string{"/testjson"},
		func(req *webrouter.RouteRequest) (any, *webrouter.ResponseMeta, error) {
			return map[string]int{"abc": 123}, nil, nil
		})
}
