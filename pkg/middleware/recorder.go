package middleware

import (
	"net/http"
	"strings"
)

// recorder captures the status and body size of a response.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// record returns w as a recorder, reusing one an outer middleware installed.
func record(w http.ResponseWriter) *recorder {
	if rec, ok := w.(*recorder); ok {
		return rec
	}
	return &recorder{ResponseWriter: w}
}

func (rec *recorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *recorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// Status is the code sent, or 200 if the handler never wrote.
func (rec *recorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rec *recorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }

// parameterized lists route prefixes whose remaining segments are user
// input and would otherwise explode label cardinality.
var parameterized = []struct {
	prefix string
	label  string
}{
	{"/api/v1/query/", "/api/v1/query/{query}"},
	{"/api/v1/click/", "/api/v1/click/{id}/{query}"},
}

func normalizePath(path string) string {
	for _, p := range parameterized {
		if strings.HasPrefix(path, p.prefix) {
			return p.label
		}
	}
	return path
}
