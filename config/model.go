package config

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ccccccmd/nacos-config-sdk/internal/ferr"
)

// DefaultGroup is used whenever a caller passes a blank group.
const DefaultGroup = "DEFAULT_GROUP"

// DefaultContentType is the content type assumed when the server omits one.
const DefaultContentType = "text"

// ConfigKey identifies a configuration item by (dataId, group, tenant).
// It is an immutable value type: equality and hashing are tuple-equality.
type ConfigKey struct {
	DataID string
	Group  string
	Tenant string
}

// NewConfigKey trims dataId/group and validates non-emptiness.
func NewConfigKey(dataID, group, tenant string) (ConfigKey, error) {
	dataID = strings.TrimSpace(dataID)
	group = strings.TrimSpace(group)
	if group == "" {
		group = DefaultGroup
	}
	if dataID == "" || group == "" {
		return ConfigKey{}, fmt.Errorf("%w: dataId and group must be non-empty", ferr.ErrValidationError)
	}
	return ConfigKey{DataID: dataID, Group: group, Tenant: strings.TrimSpace(tenant)}, nil
}

// String renders dataId+group or dataId+group+tenant.
func (k ConfigKey) String() string {
	if k.Tenant == "" {
		return k.DataID + k.Group
	}
	return k.DataID + k.Group + k.Tenant
}

// TenantOrPublic returns the tenant, or "public" when it is empty.
func (k ConfigKey) TenantOrPublic() string {
	if k.Tenant == "" {
		return "public"
	}
	return k.Tenant
}

// ConfigData is a server-returned configuration record.
type ConfigData struct {
	Content          string
	ContentType      string
	MD5              string
	EncryptedDataKey string
}

// IsEmpty reports whether the content is empty.
func (d ConfigData) IsEmpty() bool {
	return d.Content == ""
}

// NewConfigData builds a ConfigData, defaulting ContentType and computing MD5.
func NewConfigData(content, contentType, encryptedDataKey string) ConfigData {
	if contentType == "" {
		contentType = DefaultContentType
	}
	return ConfigData{
		Content:          content,
		ContentType:      contentType,
		MD5:              ContentMD5(content),
		EncryptedDataKey: encryptedDataKey,
	}
}

// ContentMD5 is the lowercase hex MD5 of the UTF-8 content, matching the
// server's MD5-match change-detection semantics.
func ContentMD5(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// LocalConfigData is a filesystem-sourced record (failover or snapshot).
type LocalConfigData struct {
	Content      string
	LastModified time.Time
}

// IsEmpty reports whether the content is empty.
func (d LocalConfigData) IsEmpty() bool {
	return d.Content == ""
}

// ConfigChangedEvent is delivered to subscribers on a detected MD5 change.
type ConfigChangedEvent struct {
	Key         ConfigKey
	NewContent  string
	OldContent  string
	ContentType string
	Timestamp   time.Time
}
