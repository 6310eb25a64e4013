// Package network is the NetworkManager D-Bus backend facade: device,
// connection, and access-point live models plus an orchestrator
// reconciling NetworkManager's PropertiesChanged/signal stream.
// Grounded on spec.md §6's NetworkManager object list
// (Device/Wireless/Wired/ActiveConnection/Settings/AccessPoint/
// Ip4Config/Ip6Config/Dhcp4Config/Dhcp6Config).
package network

// DeviceType mirrors NetworkManager's NMDeviceType enum, collapsed to
// the subset Wayle's front end distinguishes.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeEthernet
	DeviceTypeWifi
)

// DeviceState mirrors NMDeviceState, collapsed to the coarse states
// the front end needs.
type DeviceState int

const (
	StateUnknown DeviceState = iota
	StateDisconnected
	StateConnecting
	StateConnected
)

// AccessPoint is a live snapshot of a visible wifi access point.
type AccessPoint struct {
	BSSID    string
	SSID     string
	Strength uint8
	Secured  bool
	Frequency uint32
}

// Connection is a saved NetworkManager connection profile.
type Connection struct {
	Path string
	ID   string
	Type string
}
