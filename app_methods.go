package webrouter

import "strings"

// HttpMethod represents the HTTP request method used for routing and handler dispatch.
type HttpMethod string

// HTTP method constants. Only Get, Post and Put can be routed; the others exist so
// that requests carrying them can be named in logs and rejected with 501.
const (
	Get           HttpMethod = "GET"
	Post          HttpMethod = "POST"
	Put           HttpMethod = "PUT"
	Patch         HttpMethod = "PATCH"
	Delete        HttpMethod = "DELETE"
	Head          HttpMethod = "HEAD"
	MethodOptions HttpMethod = "OPTIONS"
)

// SupportedMethods is the registered method set of every RouteTable.
var SupportedMethods = []HttpMethod{Get, Post, Put}

// String returns the string representation of an HttpMethod for logging.
func (m HttpMethod) String() string {
	return string(m)
}

// CarriesBody reports whether requests with this method have their body decoded
// before the route handler runs.
func (m HttpMethod) CarriesBody() bool {
	return m == Post || m == Put
}

// MethodFromString uppercases a raw method string. The result is not guaranteed to
// be one of the constants above.
func MethodFromString(method string) HttpMethod {
	return HttpMethod(strings.ToUpper(strings.TrimSpace(method)))
}
