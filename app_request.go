package webrouter

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	exchange "github.com/Sembiance/webrouter/webrouter-exchange"
)

// RouteRequest encapsulates everything a route handler may need: the parsed request,
// the request context, the shared database pool and a request-scoped logger.
type RouteRequest struct {
	Request  *HttpRequest
	Database *pgxpool.Pool
	Context  context.Context
	Logger   *slog.Logger

	sealer *exchange.Sealer
}

// HttpRequest is the normalized view of an inbound request. Cookies, Fields and Files
// are never nil; Fields and Files are only populated for methods that carry a body.
type HttpRequest struct {
	ID          string
	Path        string
	Target      string
	QueryString string
	Method      HttpMethod
	Headers     http.Header
	Cookies     map[string]string
	Fields      map[string]string
	Files       map[string]*UploadedFile
	IpAddress   string

	query url.Values
}

// UploadedFile describes a file submitted in a multipart body. Path points at the
// temporary copy in the upload directory; removing it is the caller's business.
type UploadedFile struct {
	Path string
	Name string
	Type string
	Size int64
}

// newHttpRequest builds the request context for r. The method has already been
// uppercased and checked by the caller. Path keeps the client's percent-encoding,
// the same form routes are matched on.
func newHttpRequest(r *http.Request, method HttpMethod) *HttpRequest {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return &HttpRequest{
		ID:          uuid.NewString(),
		Path:        r.URL.EscapedPath(),
		Target:      r.RequestURI,
		QueryString: r.URL.RawQuery,
		Method:      method,
		Headers:     r.Header,
		Cookies:     map[string]string{},
		Fields:      map[string]string{},
		Files:       map[string]*UploadedFile{},
		IpAddress:   ip,
	}
}

// GetHeader returns the first value of the named request header.
func (req *HttpRequest) GetHeader(key string) string {
	return req.Headers.Get(key)
}

// Cookie returns a parsed request cookie.
func (req *HttpRequest) Cookie(name string) (string, bool) {
	v, ok := req.Cookies[name]
	return v, ok
}

// Field returns a decoded body field.
func (req *HttpRequest) Field(name string) (string, bool) {
	v, ok := req.Fields[name]
	return v, ok
}

// File returns the descriptor of an uploaded file, or nil.
func (req *HttpRequest) File(name string) *UploadedFile {
	return req.Files[name]
}

// QueryMap parses the query string into a map of key-value pairs with URL decoding.
// When a key repeats, the last value wins.
func (req *HttpRequest) QueryMap() map[string]string {
	res := make(map[string]string)
	for k, v := range req.queryValues() {
		if len(v) > 0 {
			res[k] = v[len(v)-1]
		}
	}
	return res
}

func (req *HttpRequest) queryValues() url.Values {
	if req.query == nil {
		// ParseQuery keeps every pair it could decode even when it reports an error.
		req.query, _ = url.ParseQuery(req.QueryString)
	}
	return req.query
}

func (req *HttpRequest) queryLast(key string) (string, bool) {
	v, ok := req.queryValues()[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[len(v)-1], true
}

// QueryGetString extracts a query parameter as a URL-decoded string.
// Returns nil if parameter is missing, but returns pointer to empty string for empty parameters.
func (req *HttpRequest) QueryGetString(key string) *string {
	val, ok := req.queryLast(key)
	if !ok {
		return nil
	}
	return &val
}

// QueryGetInt32 extracts a query parameter as a 32-bit signed integer.
// Returns nil if parameter is missing or cannot be parsed as int32.
func (req *HttpRequest) QueryGetInt32(key string) *int32 {
	val, ok := req.queryLast(key)
	if !ok {
		return nil
	}
	num, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return nil
	}
	v := int32(num)
	return &v
}

// QueryGetInt64 extracts a query parameter as a 64-bit signed integer.
// Returns nil if parameter is missing or cannot be parsed as int64.
func (req *HttpRequest) QueryGetInt64(key string) *int64 {
	val, ok := req.queryLast(key)
	if !ok {
		return nil
	}
	num, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil
	}
	return &num
}

// QueryGetUUID extracts and validates a query parameter as a UUID.
// Returns nil if parameter is missing or not a valid UUID format.
func (req *HttpRequest) QueryGetUUID(key string) *uuid.UUID {
	val, ok := req.queryLast(key)
	if !ok {
		return nil
	}
	g, err := uuid.Parse(val)
	if err != nil {
		return nil
	}
	return &g
}

// LogValue renders the request for detailed logging. Cookie and field values are
// left out; only their names are listed.
func (req *HttpRequest) LogValue() slog.Value {
	cookieNames := make([]string, 0, len(req.Cookies))
	for k := range req.Cookies {
		cookieNames = append(cookieNames, k)
	}
	fieldNames := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		fieldNames = append(fieldNames, k)
	}
	files := make([]string, 0, len(req.Files))
	for k, f := range req.Files {
		files = append(files, fmt.Sprintf("%s=%s(%d)", k, f.Name, f.Size))
	}
	return slog.GroupValue(
		slog.String("id", req.ID),
		slog.String("method", req.Method.String()),
		slog.String("path", req.Path),
		slog.String("query", req.QueryString),
		slog.String("remote", req.IpAddress),
		slog.Any("cookies", cookieNames),
		slog.Any("fields", fieldNames),
		slog.Any("files", files),
	)
}

// SealedCookie opens a cookie written with SealCookie and decodes its JSON payload
// into dst. It fails when no cookie secret is configured, the cookie is missing, or
// the value does not authenticate.
func (rr *RouteRequest) SealedCookie(name string, dst any) error {
	if rr.sealer == nil {
		return fmt.Errorf("no cookie secret configured")
	}
	value, ok := rr.Request.Cookie(name)
	if !ok {
		return fmt.Errorf("cookie %q not present", name)
	}
	return rr.sealer.Open(value, dst)
}

// SealCookie encrypts value into a cookie suitable for ResponseMeta.Cookies. Path
// defaults to "/" and HttpOnly is set.
func (rr *RouteRequest) SealCookie(name string, value any) (*http.Cookie, error) {
	if rr.sealer == nil {
		return nil, fmt.Errorf("no cookie secret configured")
	}
	token, err := rr.sealer.Seal(value)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{Name: name, Value: token, Path: "/", HttpOnly: true}, nil
}
