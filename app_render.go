package webrouter

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// RenderStrategy turns a request into a response payload. Implementations are built
// once at registration time and shared by every request matching their route, so
// they must not keep per-request state.
//
// The set of strategies is closed: TextRoute, JSONRoute, FileRoute and TemplateRoute.
type RenderStrategy interface {
	// Render invokes the route's handler exactly once and normalizes its output.
	Render(req *RouteRequest) (*RenderResult, error)
	// ContentType is the Content-Type used when the result does not carry its own.
	ContentType() string

	renderStrategy()
}

// ResponseMeta is optional out-of-band data a handler attaches to its result.
// Cookies are emitted in order, one Set-Cookie header each; Headers are merged into
// the response and may overwrite headers set earlier, including Content-Type.
type ResponseMeta struct {
	Cookies []*http.Cookie
	Headers map[string]string
}

// RenderResult is a normalized handler result. ContentType, when set, overrides the
// strategy's default for this response only.
type RenderResult struct {
	Payload     []byte
	ContentType string
	Meta        *ResponseMeta
}

// TextHandlerFn produces a plain text payload.
type TextHandlerFn func(req *RouteRequest) (string, *ResponseMeta, error)

// JSONHandlerFn produces a value that is encoded as JSON.
type JSONHandlerFn func(req *RouteRequest) (any, *ResponseMeta, error)

// FileHandlerFn names a file on disk to be sent as an attachment, along with its
// content type.
type FileHandlerFn func(req *RouteRequest) (filePath string, contentType string, err error)

// TemplateDataFn supplies the data a template is rendered with.
type TemplateDataFn func(req *RouteRequest) (any, error)

// TextRoute sends the handler's string unchanged.
type TextRoute struct {
	Handler TextHandlerFn
}

func NewTextRoute(handler TextHandlerFn) *TextRoute {
	return &TextRoute{Handler: handler}
}

func (self *TextRoute) Render(req *RouteRequest) (*RenderResult, error) {
	text, meta, err := self.Handler(req)
	if err != nil {
		return nil, newPipelineError(KindHandler, err)
	}
	return &RenderResult{Payload: []byte(text), Meta: meta}, nil
}

func (self *TextRoute) ContentType() string { return ContentTypeText }

func (self *TextRoute) renderStrategy() {}

// JSONRoute encodes the handler's value with encoding/json.
type JSONRoute struct {
	Handler JSONHandlerFn
}

func NewJSONRoute(handler JSONHandlerFn) *JSONRoute {
	return &JSONRoute{Handler: handler}
}

func (self *JSONRoute) Render(req *RouteRequest) (*RenderResult, error) {
	data, meta, err := self.Handler(req)
	if err != nil {
		return nil, newPipelineError(KindHandler, err)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, newPipelineError(KindSerialization, err)
	}
	return &RenderResult{Payload: payload, Meta: meta}, nil
}

func (self *JSONRoute) ContentType() string { return ContentTypeJSON }

func (self *JSONRoute) renderStrategy() {}

// FileRoute reads the file named by its handler into memory and sends it as an
// attachment. It is the only strategy doing I/O of its own.
type FileRoute struct {
	Handler FileHandlerFn
}

func NewFileRoute(handler FileHandlerFn) *FileRoute {
	return &FileRoute{Handler: handler}
}

func (self *FileRoute) Render(req *RouteRequest) (*RenderResult, error) {
	filePath, contentType, err := self.Handler(req)
	if err != nil {
		return nil, newPipelineError(KindHandler, err)
	}
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, newPipelineError(KindFileRead, err)
	}
	if contentType == "" {
		contentType = ContentTypeUnknown
	}
	return &RenderResult{
		Payload:     fileData,
		ContentType: contentType,
		Meta: &ResponseMeta{
			Headers: map[string]string{
				"Content-Length":      strconv.Itoa(len(fileData)),
				"Content-Disposition": `attachment; filename="` + filepath.Base(filePath) + `"`,
			},
		},
	}, nil
}

// ContentType is only a fallback: every successful render carries the type the
// handler declared.
func (self *FileRoute) ContentType() string { return ContentTypeUnknown }

func (self *FileRoute) renderStrategy() {}

// TemplateRoute renders Name from Dir with a TemplateRenderer. Data is either a
// static value or, when DataFn is set, supplied per request.
type TemplateRoute struct {
	Dir      string
	Name     string
	Data     any
	DataFn   TemplateDataFn
	Renderer TemplateRenderer
}

// NewTemplateRoute builds a TemplateRoute. data may be a TemplateDataFn, a plain
// func(*RouteRequest) (any, error), or any static value.
func NewTemplateRoute(renderer TemplateRenderer, dir string, name string, data any) *TemplateRoute {
	route := &TemplateRoute{Dir: dir, Name: name, Renderer: renderer}
	switch fn := data.(type) {
	case TemplateDataFn:
		route.DataFn = fn
	case func(*RouteRequest) (any, error):
		route.DataFn = fn
	default:
		route.Data = data
	}
	return route
}

func (self *TemplateRoute) Render(req *RouteRequest) (*RenderResult, error) {
	data := self.Data
	if self.DataFn != nil {
		var err error
		data, err = self.DataFn(req)
		if err != nil {
			return nil, newPipelineError(KindHandler, err)
		}
	}
	payload, err := self.Renderer.Render(self.Dir, self.Name, data)
	if err != nil {
		return nil, newPipelineError(KindSerialization, err)
	}
	return &RenderResult{Payload: payload}, nil
}

func (self *TemplateRoute) ContentType() string { return ContentTypeHTML }

func (self *TemplateRoute) renderStrategy() {}
