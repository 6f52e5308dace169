// Package identity encodes durable user identities into tamper-evident
// opaque tokens of the form base64url(identity) "." base64url(signature).
//
// The payload is only integrity protected: anyone can base64-decode it.
// Do not treat an opaque token as a secret.
package identity

import (
	"encoding/base64"
	"strings"

	bridge "github.com/chimerakang/bridge-go"
	"github.com/chimerakang/bridge-go/secret"
)

// Strict decoding rejects non-zero trailing bits, so no two distinct
// strings decode to the same bytes.
var enc = base64.RawURLEncoding.Strict()

// Codec implements bridge.IdentityCodec with HMAC-SHA256 signatures.
type Codec struct {
	master *secret.Master
}

// compile-time check
var _ bridge.IdentityCodec = (*Codec)(nil)

// New creates a codec keyed by master.
func New(master *secret.Master) *Codec {
	return &Codec{master: master}
}

// Encode returns "payload.signature" for identity. The empty identity is
// not a valid identity: its encoding never decodes.
func (c *Codec) Encode(identity string) string {
	payload := enc.EncodeToString([]byte(identity))
	sig := enc.EncodeToString(c.master.Derive(identity))
	return payload + "." + sig
}

// Decode verifies token and returns the identity it carries.
func (c *Codec) Decode(token string) (string, bool) {
	payload, sig, found := strings.Cut(token, ".")
	if !found || payload == "" || sig == "" {
		return "", false
	}
	raw, err := enc.DecodeString(payload)
	if err != nil {
		return "", false
	}
	got, err := enc.DecodeString(sig)
	if err != nil {
		return "", false
	}
	identity := string(raw)
	if !secret.Equal(got, c.master.Derive(identity)) {
		return "", false
	}
	return identity, true
}
