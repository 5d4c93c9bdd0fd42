package transport

import (
	"encoding/json"
	"testing"
)

// FuzzParseErrorBody exercises error payload parsing with arbitrary bodies.
// Anything that is not a JSON object yields empty strings.
func FuzzParseErrorBody(f *testing.F) {
	f.Add([]byte(`{"message":"token.expired"}`))
	f.Add([]byte(`{"error":"denied","code":"E42"}`))
	f.Add([]byte(`{"message":123}`))
	f.Add([]byte(`<html>502 Bad Gateway</html>`))
	f.Add([]byte("   "))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, body []byte) {
		message, code := ParseErrorBody(body)
		if message == "" && code == "" {
			return
		}
		if !json.Valid(body) {
			t.Fatalf("extracted %q/%q from invalid JSON %q", message, code, body)
		}
	})
}
