// Package codec implements the wire codec (C4): the long-polling probe's
// byte-framed request/response bodies and the CRUD parameter shapes, all
// using the exact framing the remote service expects.
package codec

import (
	"net/url"
	"strings"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

// wordSeparator and lineSeparator are the service's byte-level framing
// characters. The choice of control characters is load-bearing -- do not
// "clean up" to a more conventional delimiter.
const (
	wordSeparator = ""
	lineSeparator = ""
)

// TrackedConfig pairs a key with the MD5 currently cached for it, as fed
// into the long-polling probe.
type TrackedConfig struct {
	Key config.ConfigKey
	MD5 string
}

// EncodeListeningConfigs builds the "Listening-Configs" form value: for
// each tracked config, dataId+U+group+U+md5[+U+tenant], terminated by L.
// Order is insignificant but stable within a single call.
func EncodeListeningConfigs(tracked []TrackedConfig) string {
	var b strings.Builder
	for _, tc := range tracked {
		b.WriteString(tc.Key.DataID)
		b.WriteString(wordSeparator)
		b.WriteString(tc.Key.Group)
		b.WriteString(wordSeparator)
		b.WriteString(tc.MD5)
		if tc.Key.Tenant != "" {
			b.WriteString(wordSeparator)
			b.WriteString(tc.Key.Tenant)
		}
		b.WriteString(lineSeparator)
	}
	return b.String()
}

// DecodeChangedKeys percent-decodes body once, splits on the line
// separator, and parses each non-empty line into a ConfigKey. Unknown
// trailing fields are ignored.
func DecodeChangedKeys(body string) ([]config.ConfigKey, error) {
	decoded, err := url.QueryUnescape(body)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(decoded, lineSeparator)
	keys := make([]config.ConfigKey, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		parts := strings.Split(line, wordSeparator)
		if len(parts) < 2 {
			continue
		}
		tenant := ""
		if len(parts) >= 3 {
			tenant = parts[2]
		}
		keys = append(keys, config.ConfigKey{DataID: parts[0], Group: parts[1], Tenant: tenant})
	}
	return keys, nil
}
