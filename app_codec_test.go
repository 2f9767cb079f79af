package webrouter

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCookieHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   map[string]string
	}{
		{name: "empty", header: "", want: map[string]string{}},
		{name: "single", header: "session=abc123", want: map[string]string{"session": "abc123"}},
		{name: "several", header: "a=1; b=2;c=3", want: map[string]string{"a": "1", "b": "2", "c": "3"}},
		{name: "quoted value", header: `q="hello"`, want: map[string]string{"q": "hello"}},
		{name: "first occurrence wins", header: "a=1; a=2", want: map[string]string{"a": "1"}},
		{name: "percent-decoded", header: "c=%E2%9C%93; sp=a%20b", want: map[string]string{"c": "✓", "sp": "a b"}},
		{name: "undecodable kept raw", header: "bad=%zz", want: map[string]string{"bad": "%zz"}},
		{name: "plus left alone", header: "p=a+b", want: map[string]string{"p": "a+b"}},
		{name: "malformed pair skipped", header: "bad name=x; ok=yes", want: map[string]string{"ok": "yes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCookieHeader(tt.header))
		})
	}
}

func TestCookieRoundTrip(t *testing.T) {
	serialized, err := SerializeCookie(&http.Cookie{Name: "session", Value: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "session=abc123", serialized)

	parsed := ParseCookieHeader(serialized)
	assert.Equal(t, map[string]string{"session": "abc123"}, parsed)
}

func TestSerializeCookieAttributes(t *testing.T) {
	serialized, err := SerializeCookie(&http.Cookie{
		Name:     "id",
		Value:    "42",
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	require.NoError(t, err)
	assert.Equal(t, "id=42; Path=/; Max-Age=3600; HttpOnly; Secure; SameSite=Lax", serialized)
}

func TestSerializeCookieInvalid(t *testing.T) {
	_, err := SerializeCookie(&http.Cookie{Name: "bad name", Value: "x"})
	assert.Error(t, err)
	_, err = SerializeCookie(nil)
	assert.Error(t, err)
}

func TestAcceptsGzip(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"gzip", true},
		{"gzip, deflate", true},
		{"deflate,  GZIP ", true},
		{"br, deflate", false},
		{"gzip;q=1.0", false},
		{"x-gzip", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptsGzip(tt.header))
		})
	}
}

func gunzip(t *testing.T, data []byte) []byte {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return out
}

func TestGzip(t *testing.T) {
	input := []byte(`{"abc":123}`)
	original := append([]byte(nil), input...)

	compressed, err := Gzip(input)
	require.NoError(t, err)
	assert.NotEqual(t, input, compressed)
	assert.Equal(t, original, input, "input must not be modified")
	assert.Equal(t, input, gunzip(t, compressed))

	// pooled writers are reset between uses
	again, err := Gzip([]byte("second"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), gunzip(t, again))
}
