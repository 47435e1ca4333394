package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"strconv"
	"time"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

// SignedSession is the stateless AK/SK auth variant: every request is
// signed fresh from the access key / secret key pair, no login round
// trip and no background task.
type SignedSession struct {
	accessKey string
	secretKey string
}

// NewSignedSession builds a SignedSession.
func NewSignedSession(accessKey, secretKey string) *SignedSession {
	return &SignedSession{accessKey: accessKey, secretKey: secretKey}
}

func (SignedSession) IsEnabled() bool                           { return true }
func (SignedSession) Initialize(context.Context) error          { return nil }
func (SignedSession) EnsureAuthenticated(context.Context) error { return nil }
func (SignedSession) ApplyToRequest(map[string]string)          {}
func (SignedSession) Stop()                                     {}

// ApplyToParams sets Spas-AccessKey, Timestamp, Spas-Signature per
// spec.md's construction: resource = tenant+group (or group, or empty),
// signatureInput = resource+timestamp (or just timestamp), signature =
// base64(HMAC-SHA1(secretKey, signatureInput)).
func (s *SignedSession) ApplyToParams(params url.Values, key config.ConfigKey) {
	resource := resourceFor(key)
	timestamp := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)

	signatureInput := timestamp
	if resource != "" {
		signatureInput = resource + timestamp
	}

	mac := hmac.New(sha1.New, []byte(s.secretKey))
	mac.Write([]byte(signatureInput))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	params.Set("Spas-AccessKey", s.accessKey)
	params.Set("Timestamp", timestamp)
	params.Set("Spas-Signature", signature)
}

func resourceFor(key config.ConfigKey) string {
	if key.Tenant != "" && key.Group != "" {
		return key.Tenant + key.Group
	}
	return key.Group
}
