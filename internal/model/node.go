package model

import "time"

// ConnectionType classifies how a mesh node claims to be reachable
type ConnectionType string

const (
	ConnectionTypeMesh       ConnectionType = "mesh"
	ConnectionTypeBluetooth  ConnectionType = "bluetooth"
	ConnectionTypeWifiDirect ConnectionType = "wifi_direct"
	ConnectionTypeUnknown    ConnectionType = "unknown"
)

// ParseConnectionType normalizes a caller-supplied connection type.
// Unrecognized values map to unknown.
func ParseConnectionType(s string) ConnectionType {
	switch ConnectionType(s) {
	case ConnectionTypeMesh, ConnectionTypeBluetooth, ConnectionTypeWifiDirect:
		return ConnectionType(s)
	default:
		return ConnectionTypeUnknown
	}
}

// MeshNode is a metadata record for a claimed network participant.
// No transport happens here; the record only tracks registration state.
type MeshNode struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	DeviceID       string         `json:"device_id" gorm:"uniqueIndex;not null;size:64"`
	Username       string         `json:"username" gorm:"size:64"`
	IPAddress      *string        `json:"ip_address,omitempty" gorm:"size:45"`
	ConnectionType ConnectionType `json:"connection_type" gorm:"size:16"`
	LastPing       time.Time      `json:"last_ping" gorm:"not null"`
	IsActive       bool           `json:"is_active" gorm:"not null"`
}

// MeshNodeCreate is the payload accepted by POST /api/mesh/nodes
type MeshNodeCreate struct {
	DeviceID       string  `json:"device_id"`
	Username       string  `json:"username"`
	IPAddress      *string `json:"ip_address"`
	ConnectionType string  `json:"connection_type"`
}
