// Package device enumerates removable block devices and reports their live
// mount state.
package device

// Device is a removable block device or one of its partitions as seen at
// enumeration time. MountPoint is non-empty iff Mounted is true.
type Device struct {
	Path       string `json:"device_path"`
	Mounted    bool   `json:"is_mounted"`
	MountPoint string `json:"mount_point"`
}
