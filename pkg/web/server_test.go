package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"src.codepad.dev/pkg/bridge"
	"src.codepad.dev/pkg/lang"
)

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	h := NewServer(Config{}).Handler()
	rec := do(t, h, "GET", "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	for _, want := range []string{"Free JS / TS Compiler", "with Vim Mode 🤓", "monaco-vim", "/api/session"} {
		assert.Contains(t, body, want)
	}
	// Stale echoes of edits are skipped, newer text keeps the cursor, and
	// monaco-vim only attaches while the latest state has vim enabled.
	for _, want := range []string{"ack === seq", "executeEdits", "state.vim && !vimMode"} {
		assert.Contains(t, body, want)
	}
}

func TestHealthz(t *testing.T) {
	h := NewServer(Config{}).Handler()
	rec := do(t, h, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, rec.Body.String())
}

func TestListLanguages(t *testing.T) {
	h := NewServer(Config{}).Handler()
	rec := do(t, h, "GET", "/api/languages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"id":"javascript","name":"JavaScript","executable":true},
		{"id":"typescript","name":"TypeScript","executable":true},
		{"id":"python","name":"Python","executable":false},
		{"id":"java","name":"Java","executable":false}
	]`, rec.Body.String())
}

func TestRun(t *testing.T) {
	h := NewServer(Config{Language: lang.Python}).Handler()
	for _, test := range []struct {
		name     string
		body     string
		wantCode int
		want     string
	}{
		{
			name:     "logs",
			body:     `{"language":"javascript","code":"console.log('Hello, World!'); console.log({a:1})"}`,
			wantCode: http.StatusOK,
			want:     `{"output":"Hello, World!\n{\"a\":1}","lines":["Hello, World!","{\"a\":1}"],"raised":false}`,
		},
		{
			name:     "raises",
			body:     `{"language":"typescript","code":"throw new Error('x')"}`,
			wantCode: http.StatusOK,
			want:     `{"output":"Error: x","lines":["Error: x"],"raised":true}`,
		},
		{
			name:     "no output",
			body:     `{"language":"javascript","code":""}`,
			wantCode: http.StatusOK,
			want:     `{"output":"","lines":[],"raised":false}`,
		},
		{
			name:     "configured language",
			body:     `{"code":"console.log(1)"}`,
			wantCode: http.StatusOK,
			want:     `{"output":"` + bridge.UnsupportedMessage + `","lines":["` + bridge.UnsupportedMessage + `"],"raised":false}`,
		},
		{
			name:     "unknown language",
			body:     `{"language":"cobol","code":""}`,
			wantCode: http.StatusBadRequest,
			want:     `{"error":"unknown language: \"cobol\""}`,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/run", test.body)
			assert.Equal(t, test.wantCode, rec.Code)
			assert.JSONEq(t, test.want, rec.Body.String())
		})
	}
}

func TestRun_BadRequest(t *testing.T) {
	h := NewServer(Config{}).Handler()
	rec := do(t, h, "POST", "/api/run", `{"code":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body["error"], "bad request: "), "error %q", body["error"])
}

func TestRun_Timeout(t *testing.T) {
	h := NewServer(Config{Bridge: bridge.New(bridge.Config{
		Evaluator: bridge.NewGoja(bridge.GojaConfig{}),
		Timeout:   50 * time.Millisecond,
	})}).Handler()
	rec := do(t, h, "POST", "/api/run", `{"code":"for(;;){}"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"output":"Error: execution timed out","lines":["Error: execution timed out"],"raised":true}`,
		rec.Body.String())
}

func TestCORS(t *testing.T) {
	t.Run("listed origin", func(t *testing.T) {
		h := NewServer(Config{AllowedOrigins: []string{"https://example.com"}}).Handler()
		rec := do(t, h, "GET", "/healthz", "", "Origin", "https://example.com")
		assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

		rec = do(t, h, "GET", "/healthz", "", "Origin", "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("all origins", func(t *testing.T) {
		h := NewServer(Config{AllowedOrigins: []string{"*"}}).Handler()
		rec := do(t, h, "GET", "/healthz", "", "Origin", "https://any.example")
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
	t.Run("no origins", func(t *testing.T) {
		h := NewServer(Config{}).Handler()
		rec := do(t, h, "GET", "/healthz", "", "Origin", "https://any.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCheckOrigin(t *testing.T) {
	for _, test := range []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{nil, "", true},
		{nil, "http://example.com", true},
		{nil, "http://other.example", false},
		{[]string{"*"}, "http://other.example", true},
		{[]string{"http://other.example"}, "http://other.example", true},
	} {
		s := NewServer(Config{AllowedOrigins: test.allowed})
		req := httptest.NewRequest("GET", "/api/session", nil)
		if test.origin != "" {
			req.Header.Set("Origin", test.origin)
		}
		assert.Equal(t, test.want, s.checkOrigin(req), "allowed %v, origin %q", test.allowed, test.origin)
	}
}
