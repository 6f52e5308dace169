package bridgescript_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chimerakang/bridge-go/bridgescript"
	"github.com/chimerakang/bridge-go/fake"
	"github.com/gin-gonic/gin"
)

func render(t *testing.T) string {
	t.Helper()
	script, err := bridgescript.Render(bridgescript.Options{
		Origin:       "https://www.hoyolab.com",
		HandoffURL:   "https://bridge.example.test/bridge-handoff",
		CookieName:   "ltoken_v2",
		CookieLength: 64,
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	return string(script)
}

func TestRender_Contract(t *testing.T) {
	script := render(t)

	for _, want := range []string{
		`var expectedOrigin = "https://www.hoyolab.com";`,
		`var handoffURL = "https://bridge.example.test/bridge-handoff";`,
		`var cookieName = "ltoken_v2";`,
		`var cookieLength = 64;`,
		`window.location.hash`,
		`/^[0-9]{6}$/`,
		`document.createElement("form")`,
		`form.method = "POST"`,
		`{ otp: otp, user: user, token: token, region: region }`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestRender_NeverReadsQueryString(t *testing.T) {
	script := render(t)
	for _, banned := range []string{"location.search", "fetch(", "XMLHttpRequest", "credentials"} {
		if strings.Contains(script, banned) {
			t.Errorf("script must not use %q", banned)
		}
	}
}

func TestRender_DistinctMessages(t *testing.T) {
	script := render(t)
	m := bridgescript.DefaultMessages

	seen := map[string]bool{}
	for _, msg := range []string{m.WrongOrigin, m.InvalidOTP, m.MissingUser, m.NoLoginData} {
		if seen[msg] {
			t.Errorf("message %q is not distinct", msg)
		}
		seen[msg] = true
		if !strings.Contains(script, msg) {
			t.Errorf("script missing message %q", msg)
		}
	}
	if !strings.Contains(m.NoLoginData, "couldn't retrieve login data") {
		t.Errorf("NoLoginData = %q", m.NoLoginData)
	}

	// origin guard runs before anything reads the fragment or the cookie
	guard := strings.Index(script, "window.location.origin !== expectedOrigin")
	hash := strings.Index(script, "window.location.hash")
	cookie := strings.Index(script, "document.cookie")
	if guard < 0 || guard > hash || hash > cookie {
		t.Error("script must check the origin, then parse the fragment, then read the cookie")
	}
}

func TestRender_EscapesValues(t *testing.T) {
	script, err := bridgescript.Render(bridgescript.Options{
		Origin:       "https://www.hoyolab.com",
		HandoffURL:   "https://x.test/</script><script>alert(1)</script>",
		CookieName:   `a"b`,
		CookieLength: 64,
	})
	if err != nil {
		t.Fatal(err)
	}
	s := string(script)
	if strings.Contains(s, "</script>") {
		t.Error("values must not be able to close the script")
	}
	if !strings.Contains(s, `"a\"b"`) {
		t.Error("cookie name should be a quoted JavaScript string")
	}
}

func TestRender_IncompleteOptions(t *testing.T) {
	if _, err := bridgescript.Render(bridgescript.Options{Origin: "https://www.hoyolab.com"}); err == nil {
		t.Error("expected error for incomplete options")
	}
}

func TestEmitter_Handle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := fake.NewClient()
	e, err := bridgescript.New(env.Client)
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/bridge-script", e.Handle)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bridge-script", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != bridgescript.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if !strings.Contains(w.Body.String(), env.Config.PublicURL+bridgescript.HandoffPath) {
		t.Error("script should post to the configured public url")
	}
}
