package codec

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tracked := []TrackedConfig{
		{Key: config.ConfigKey{DataID: "app.yaml", Group: "DEFAULT_GROUP"}, MD5: "abc123"},
		{Key: config.ConfigKey{DataID: "db.yaml", Group: "DEFAULT_GROUP", Tenant: "tenant-1"}, MD5: "def456"},
	}

	encoded := EncodeListeningConfigs(tracked)
	// The server's reply names each changed config by the request line
	// minus its md5 field (dataId U group [U tenant]), percent-encoded.
	var reply strings.Builder
	for _, line := range strings.Split(encoded, lineSeparator) {
		if line == "" {
			continue
		}
		parts := strings.Split(line, wordSeparator)
		fields := append(parts[:2:2], parts[3:]...)
		reply.WriteString(strings.Join(fields, wordSeparator) + lineSeparator)
	}
	keys, err := DecodeChangedKeys(url.QueryEscape(reply.String()))
	require.NoError(t, err)

	want := map[config.ConfigKey]bool{
		{DataID: "app.yaml", Group: "DEFAULT_GROUP"}:                      true,
		{DataID: "db.yaml", Group: "DEFAULT_GROUP", Tenant: "tenant-1"}:   true,
	}
	got := map[config.ConfigKey]bool{}
	for _, k := range keys {
		got[k] = true
	}
	assert.Equal(t, want, got)
}

func TestDecodeChangedKeys_IgnoresEmptyLines(t *testing.T) {
	keys, err := DecodeChangedKeys("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDecodeChangedKeys_IgnoresUnknownTrailingFields(t *testing.T) {
	raw := "app.yaml" + wordSeparator + "DEFAULT_GROUP" + wordSeparator + "" + wordSeparator + "extra-field" + lineSeparator
	keys, err := DecodeChangedKeys(url.QueryEscape(raw))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "app.yaml", keys[0].DataID)
	assert.Equal(t, "DEFAULT_GROUP", keys[0].Group)
	assert.Equal(t, "", keys[0].Tenant)
}

func TestEncodeListeningConfigs_Empty(t *testing.T) {
	assert.Equal(t, "", EncodeListeningConfigs(nil))
}
