package codec

import (
	"net/url"

	"github.com/ccccccmd/nacos-config-sdk/config"
)

// KeyParams returns the dataId/group/[tenant] triple as form values,
// shared by the GET/POST/DELETE config endpoints.
func KeyParams(key config.ConfigKey) url.Values {
	v := url.Values{}
	v.Set("dataId", key.DataID)
	v.Set("group", key.Group)
	if key.Tenant != "" {
		v.Set("tenant", key.Tenant)
	}
	return v
}

// PublishParams builds the publish form body: dataId, group, content,
// type, and optional tenant.
func PublishParams(key config.ConfigKey, content, contentType string) url.Values {
	v := KeyParams(key)
	v.Set("content", content)
	if contentType == "" {
		contentType = config.DefaultContentType
	}
	v.Set("type", contentType)
	return v
}
