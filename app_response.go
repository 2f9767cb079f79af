package webrouter

import (
	"net/http"
	"strconv"
	"time"
)

const (
	ContentTypeText     = "text/plain;charset=utf-8"
	ContentTypeJSON     = "application/json;charset=utf-8"
	ContentTypeHTML     = "text/html;charset=utf-8"
	ContentTypeUnknown  = "application/unknown"
	contentTypePlain    = "text/plain"
	expiresInThePast    = "Thu, 01 Jan 1970 00:00:01 GMT"
	cacheControlNoStore = "no-cache, no-store"
)

// HttpResponse represents a complete HTTP response with headers, body, and status code.
// Headers is multi-valued so several Set-Cookie entries can coexist.
type HttpResponse struct {
	StatusCode StatusCode
	Headers    http.Header
	Body       []byte
}

// NewHttpResponse creates a new HttpResponse with default values.
// Returns a response with 200 OK status and empty headers/body.
func NewHttpResponse() *HttpResponse {
	return &HttpResponse{
		StatusCode: StatusOK,
		Headers:    make(http.Header),
		Body:       []byte{},
	}
}

// baselineResponse seeds a successful response with the headers every rendered
// route carries.
func baselineResponse(now time.Time) *HttpResponse {
	res := NewHttpResponse()
	res.Headers.Set("Date", now.UTC().Format(http.TimeFormat))
	res.Headers.Set("Cache-Control", cacheControlNoStore)
	res.Headers.Set("Vary", "Accept-Encoding")
	res.Headers.Set("Expires", expiresInThePast)
	return res
}

// StringResponse creates a plain text HTTP response.
// Returns a 200 OK response with "text/plain" content type.
func StringResponse(body string) *HttpResponse {
	res := NewHttpResponse()
	res.Headers.Set("Content-Type", contentTypePlain)
	res.Body = []byte(body)
	return res
}

// NotImplementedResponse answers a request whose method is outside the routed set.
// The method is echoed exactly as the client sent it.
func NotImplementedResponse(method string) *HttpResponse {
	res := StringResponse("Method [" + method + "] is not supported.")
	res.StatusCode = StatusNotImplemented
	return res
}

// NotFoundResponse answers a request for an unregistered path. The body is empty.
func NotFoundResponse() *HttpResponse {
	res := StringResponse("")
	res.StatusCode = StatusNotFound
	return res
}

// ErrorResponse creates a 500 Internal Server Error response whose body is the
// error's message.
func ErrorResponse(err error) *HttpResponse {
	res := StringResponse(err.Error())
	res.StatusCode = StatusInternalServerError
	return res
}

// SetHeader adds or replaces an HTTP response header.
func (self *HttpResponse) SetHeader(key string, value string) {
	self.Headers.Set(key, value)
}

// AddHeader appends a value without touching existing ones.
func (self *HttpResponse) AddHeader(key string, value string) {
	self.Headers.Add(key, value)
}

// SetStatus updates the HTTP status code for this response.
func (self *HttpResponse) SetStatus(status StatusCode) {
	self.StatusCode = status
}

// Write sends status, headers and body to w. Content-Length always matches the body
// written. It must be called once per request.
func (self *HttpResponse) Write(w http.ResponseWriter) error {
	header := w.Header()
	for key, values := range self.Headers {
		header[key] = values
	}
	header.Set("Content-Length", strconv.Itoa(len(self.Body)))
	w.WriteHeader(int(self.StatusCode))
	if len(self.Body) == 0 {
		return nil
	}
	_, err := w.Write(self.Body)
	return err
}
