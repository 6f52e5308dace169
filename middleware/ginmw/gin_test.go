package ginmw_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/fake"
	"github.com/chimerakang/bridge-go/middleware/ginmw"
	"github.com/chimerakang/bridge-go/signature"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(ginmw.RequestID())
	r.GET("/", func(c *gin.Context) {
		seen = bridge.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	got := w.Header().Get(ginmw.HeaderRequestID)
	if got == "" {
		t.Fatal("response should carry a request id")
	}
	if seen != got {
		t.Errorf("context id = %q, header id = %q", seen, got)
	}
}

func TestRequestID_ReusesWellFormedInbound(t *testing.T) {
	r := gin.New()
	r.Use(ginmw.RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	const id = "6f1c1f0e-8a62-4b8e-9d7c-0e7d9b1c2a3f"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ginmw.HeaderRequestID, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(ginmw.HeaderRequestID); got != id {
		t.Errorf("request id = %q, want %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ginmw.HeaderRequestID, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(ginmw.HeaderRequestID); got == "<script>" {
		t.Error("malformed inbound id should be replaced")
	}
}

func TestCORS(t *testing.T) {
	env := fake.NewClient()
	r := gin.New()
	r.Use(ginmw.CORS(env.Client))
	r.Any("/x", func(c *gin.Context) { c.JSON(http.StatusUnauthorized, gin.H{"error": "nope"}) })

	tests := []struct {
		method string
		status int
	}{
		{http.MethodOptions, http.StatusNoContent},
		{http.MethodPost, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, "/x", nil))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://www.hoyolab.com" {
				t.Errorf("Access-Control-Allow-Origin = %q", got)
			}
			if w.Header().Get("Access-Control-Allow-Methods") == "" {
				t.Error("Access-Control-Allow-Methods should be set")
			}
		})
	}
}

func newSignatureRouter(env *fake.Env, rejected *[]string) *gin.Engine {
	r := gin.New()
	r.POST("/webhook",
		ginmw.Signature(env.Client, ginmw.WithRejectHook(func(_ *gin.Context, reason string) {
			*rejected = append(*rejected, reason)
		})),
		func(c *gin.Context) { c.Data(http.StatusOK, "application/json", ginmw.GetRawBody(c)) },
	)
	return r
}

func TestSignature_Valid(t *testing.T) {
	env := fake.NewClient()
	var rejected []string
	r := newSignatureRouter(env, &rejected)

	body := []byte(`{"type":1}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	env.Signer.SignRequest(req, body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != string(body) {
		t.Errorf("handler saw body %q", w.Body.String())
	}
	if len(rejected) != 0 {
		t.Errorf("reject hook ran: %v", rejected)
	}
}

func TestSignature_Rejects(t *testing.T) {
	env := fake.NewClient()
	other := fake.NewSigner()
	body := []byte(`{"type":1}`)

	tests := []struct {
		name   string
		prep   func(*http.Request)
		reason string
	}{
		{"no headers", func(*http.Request) {}, "missing"},
		{"no timestamp", func(r *http.Request) {
			env.Signer.SignRequest(r, body)
			r.Header.Del(signature.HeaderTimestamp)
		}, "missing"},
		{"signed over other bytes", func(r *http.Request) {
			env.Signer.SignRequest(r, []byte(`{"type":2}`))
		}, "invalid"},
		{"other key", func(r *http.Request) { other.SignRequest(r, body) }, "invalid"},
		{"garbage signature", func(r *http.Request) {
			r.Header.Set(signature.HeaderTimestamp, "1700000000")
			r.Header.Set(signature.HeaderSignature, "zz")
		}, "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rejected []string
			r := newSignatureRouter(env, &rejected)

			req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
			tt.prep(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if len(rejected) != 1 || rejected[0] != tt.reason {
				t.Errorf("rejected = %v, want [%s]", rejected, tt.reason)
			}
		})
	}
}

func TestSignature_BodyTooLarge(t *testing.T) {
	env := fake.NewClient()
	var rejected []string
	r := newSignatureRouter(env, &rejected)

	body := []byte(strings.Repeat("a", ginmw.MaxWebhookBody+1))
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	env.Signer.SignRequest(req, body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}
