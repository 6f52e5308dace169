// Package bridgescript generates the script that runs inside the
// third-party browser context. The script reads the OTP and opaque user id
// from the URL fragment, reads the third-party session cookie, and submits
// all of it to the handoff endpoint through a hidden cross-origin form.
package bridgescript

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/gin-gonic/gin"
)

// ContentType of the served script.
const ContentType = "application/javascript; charset=utf-8"

// HandoffPath is appended to the public URL to form the submission target.
const HandoffPath = "/bridge-handoff"

// Messages shown to the user by the script.
type Messages struct {
	WrongOrigin string
	InvalidOTP  string
	MissingUser string
	NoLoginData string
}

// DefaultMessages are used when Options.Messages is zero.
var DefaultMessages = Messages{
	WrongOrigin: "This script only works on the expected site. Open your bridge link there and try again.",
	InvalidOTP:  "The link is missing a valid one-time code. Request a new link from the bot.",
	MissingUser: "The link is missing your user identifier. Request a new link from the bot.",
	NoLoginData: "Sorry, we couldn't retrieve login data. Make sure you are signed in and try again.",
}

// Options are the values baked into the script.
type Options struct {
	Origin       string
	HandoffURL   string
	CookieName   string
	CookieLength int
	Messages     Messages
}

//go:embed bridge.js.tmpl
var scriptSource string

var scriptTmpl = template.Must(template.New("bridge.js").
	Funcs(template.FuncMap{"json": jsonValue}).
	Parse(scriptSource))

// jsonValue renders v as a JavaScript literal. encoding/json escapes <, >
// and & so no value can close the surrounding script.
func jsonValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Render produces the script for opts.
func Render(opts Options) ([]byte, error) {
	if opts.Origin == "" || opts.HandoffURL == "" || opts.CookieName == "" || opts.CookieLength <= 0 {
		return nil, fmt.Errorf("bridgescript: incomplete options")
	}
	if opts.Messages == (Messages{}) {
		opts.Messages = DefaultMessages
	}
	var buf bytes.Buffer
	if err := scriptTmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("bridgescript: render: %w", err)
	}
	return buf.Bytes(), nil
}

// Emitter serves a script rendered once from the client configuration.
type Emitter struct {
	script []byte
}

// New renders the script for client's third-party origin, public URL and
// cookie settings.
func New(client *bridge.Client) (*Emitter, error) {
	cfg := client.Config()
	script, err := Render(Options{
		Origin:       client.ThirdPartyOrigin(),
		HandoffURL:   cfg.PublicURL + HandoffPath,
		CookieName:   cfg.CookieName,
		CookieLength: cfg.CookieLength,
	})
	if err != nil {
		return nil, err
	}
	return &Emitter{script: script}, nil
}

// Script returns the rendered script.
func (e *Emitter) Script() []byte { return e.script }

// Handle is the gin handler for GET /bridge-script.
func (e *Emitter) Handle(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, ContentType, e.script)
}
