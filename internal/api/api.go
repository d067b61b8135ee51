// Package api holds the request and response messages of the Ormos service.
// Field names follow the unit.containers.v0 wire schema.
package api

import (
	"github.com/unitexe/skopos/internal/device"
	"github.com/unitexe/skopos/internal/system"
)

type ListUsbDevicesRequest struct{}

type ListUsbDevicesResponse struct {
	Devices []device.Device `json:"devices"`
	// Warnings lists devices skipped by best-effort enumeration
	Warnings []string `json:"warnings,omitempty"`
}

type MountUsbDeviceRequest struct {
	DevicePath string `json:"device_path"`
	MountPoint string `json:"mount_point,omitempty"`
}

type MountUsbDeviceResponse struct {
	IsSuccess      bool             `json:"is_success"`
	ErrorMessage   string           `json:"error_message"`
	AlreadyInState bool             `json:"already_in_state,omitempty"`
	MountPoint     string           `json:"mount_point,omitempty"`
	ErrorKind      system.ErrorKind `json:"error_kind,omitempty"`
}

type UnmountUsbDeviceRequest struct {
	MountPoint string `json:"mount_point,omitempty"`
}

type UnmountUsbDeviceResponse = MountUsbDeviceResponse

type ListImageArchivesRequest struct {
	Path string `json:"path,omitempty"`
}

type ImageArchive struct {
	FilePath       string `json:"file_path"`
	FileSizeBytes  int64  `json:"file_size_bytes"`
	Sha256Checksum string `json:"sha256_checksum"`
}

type ListImageArchivesResponse struct {
	ImageArchives []ImageArchive `json:"image_archives"`
}

type LoadImageArchiveRequest struct {
	FilePath  string `json:"file_path"`
	ImageName string `json:"image_name"`
	ImageTag  string `json:"image_tag"`
	// ExpectedSha256Checksum, when set, must match the archive before it is copied
	ExpectedSha256Checksum string `json:"expected_sha256_checksum,omitempty"`
}

type LoadImageArchiveResponse struct {
	IsSuccess    bool             `json:"is_success"`
	ErrorMessage string           `json:"error_message"`
	Reference    string           `json:"reference,omitempty"`
	ErrorKind    system.ErrorKind `json:"error_kind,omitempty"`
}

type InspectImageArchiveRequest struct {
	FilePath string `json:"file_path"`
}

type InspectImageArchiveResponse struct {
	IsSuccess bool             `json:"is_success"`
	Stdout    string           `json:"stdout"`
	Stderr    string           `json:"stderr"`
	ErrorKind system.ErrorKind `json:"error_kind,omitempty"`
}
