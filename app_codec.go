package webrouter

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// ParseCookieHeader turns a Cookie request header into a name → value map. Values are
// percent-decoded; one that does not decode is kept as sent. Malformed pairs are
// skipped rather than reported and the first occurrence of a name wins. An empty
// header yields an empty map.
func ParseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return cookies
	}
	req := http.Request{Header: http.Header{"Cookie": {header}}}
	for _, c := range req.Cookies() {
		if _, exists := cookies[c.Name]; exists {
			continue
		}
		value := c.Value
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		cookies[c.Name] = value
	}
	return cookies
}

// SerializeCookie renders a cookie as a Set-Cookie header value.
func SerializeCookie(c *http.Cookie) (string, error) {
	if c == nil {
		return "", fmt.Errorf("cookie is nil")
	}
	if err := c.Valid(); err != nil {
		return "", fmt.Errorf("invalid cookie %q: %w", c.Name, err)
	}
	return c.String(), nil
}

// AcceptsGzip reports whether an Accept-Encoding header lists gzip. Tokens are split
// on commas, trimmed and compared case-insensitively; parameters such as ";q=0" make
// the token not match.
func AcceptsGzip(acceptEncoding string) bool {
	for _, encoding := range strings.Split(acceptEncoding, ",") {
		if strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
			return true
		}
	}
	return false
}

var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(nil)
	},
}

// Gzip compresses data into a new slice. The input is never modified.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(gz)
	gz.Reset(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
