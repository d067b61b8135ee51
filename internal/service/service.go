// Package service implements the Ormos operations on top of the device, mount
// and archive components.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/archive"
	"github.com/unitexe/skopos/internal/device"
	"github.com/unitexe/skopos/internal/mount"
	"github.com/unitexe/skopos/internal/system"
)

// Operations is the surface shared by the local service and the remote client
type Operations interface {
	ListUsbDevices(ctx context.Context, req *api.ListUsbDevicesRequest) (*api.ListUsbDevicesResponse, error)
	MountUsbDevice(ctx context.Context, req *api.MountUsbDeviceRequest) (*api.MountUsbDeviceResponse, error)
	UnmountUsbDevice(ctx context.Context, req *api.UnmountUsbDeviceRequest) (*api.UnmountUsbDeviceResponse, error)
	ListImageArchives(ctx context.Context, req *api.ListImageArchivesRequest) (*api.ListImageArchivesResponse, error)
	LoadImageArchive(ctx context.Context, req *api.LoadImageArchiveRequest) (*api.LoadImageArchiveResponse, error)
	InspectImageArchive(ctx context.Context, req *api.InspectImageArchiveRequest) (*api.InspectImageArchiveResponse, error)
}

// Recorder counts operation outcomes
type Recorder interface {
	RecordOperation(operation, outcome string)
}

// Outcome labels passed to the Recorder
const (
	OutcomeSuccess        = "success"
	OutcomeAlreadyInState = "already_in_state"
	OutcomeFailure        = "failure"
	OutcomeError          = "error"
)

// Components are the collaborators a Service is assembled from
type Components struct {
	Enumerator *device.Enumerator
	MountTable *device.MountTable
	Mounts     *mount.Manager
	Scanner    *archive.Scanner
	Cataloger  *archive.Cataloger
	Loader     *archive.Loader
	Recorder   Recorder
}

// Service is the local implementation of Operations
type Service struct {
	enumerator *device.Enumerator
	mountTable *device.MountTable
	mounts     *mount.Manager
	scanner    *archive.Scanner
	cataloger  *archive.Cataloger
	loader     *archive.Loader
	recorder   Recorder
}

var _ Operations = (*Service)(nil)

// New creates a service from its components. Recorder may be nil.
func New(c Components) *Service {
	return &Service{
		enumerator: c.Enumerator,
		mountTable: c.MountTable,
		mounts:     c.Mounts,
		scanner:    c.Scanner,
		cataloger:  c.Cataloger,
		loader:     c.Loader,
		recorder:   c.Recorder,
	}
}

func (s *Service) record(operation, outcome string, start time.Time) {
	log.Debug().Str("operation", operation).Str("outcome", outcome).Dur("duration", time.Since(start)).Msg("operation finished")
	if s.recorder != nil {
		s.recorder.RecordOperation(operation, outcome)
	}
}

func outcomeOf(succeeded, alreadyInState bool) string {
	switch {
	case alreadyInState:
		return OutcomeAlreadyInState
	case succeeded:
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}

// ListUsbDevices enumerates removable devices and annotates each with its
// current mount state.
func (s *Service) ListUsbDevices(ctx context.Context, _ *api.ListUsbDevicesRequest) (*api.ListUsbDevicesResponse, error) {
	start := time.Now()
	enumeration, err := s.enumerator.List()
	if err != nil {
		s.record("ListUsbDevices", OutcomeError, start)
		return nil, err
	}

	resp := &api.ListUsbDevicesResponse{Devices: s.mountTable.Describe(enumeration.Paths)}
	for _, e := range multierr.Errors(enumeration.Errors) {
		resp.Warnings = append(resp.Warnings, e.Error())
	}
	s.record("ListUsbDevices", OutcomeSuccess, start)
	return resp, nil
}

// MountUsbDevice mounts a device. Capability failures are reported in the
// response; only a missing device path is returned as an error.
func (s *Service) MountUsbDevice(ctx context.Context, req *api.MountUsbDeviceRequest) (*api.MountUsbDeviceResponse, error) {
	start := time.Now()
	if req.DevicePath == "" {
		s.record("MountUsbDevice", OutcomeError, start)
		return nil, system.MalformedInput("MountUsbDevice", "device_path is required")
	}

	out := s.mounts.Mount(ctx, req.DevicePath, req.MountPoint)
	s.record("MountUsbDevice", outcomeOf(out.Succeeded, out.AlreadyInState), start)
	return mountResponse(out), nil
}

// UnmountUsbDevice unmounts the given mount point, or the mount root when
// none is given.
func (s *Service) UnmountUsbDevice(ctx context.Context, req *api.UnmountUsbDeviceRequest) (*api.UnmountUsbDeviceResponse, error) {
	start := time.Now()
	out := s.mounts.Unmount(ctx, req.MountPoint)
	s.record("UnmountUsbDevice", outcomeOf(out.Succeeded, out.AlreadyInState), start)
	return mountResponse(out), nil
}

func mountResponse(out mount.Outcome) *api.MountUsbDeviceResponse {
	return &api.MountUsbDeviceResponse{
		IsSuccess:      out.Succeeded,
		ErrorMessage:   out.ErrorMessage,
		AlreadyInState: out.AlreadyInState,
		MountPoint:     out.MountPoint,
		ErrorKind:      out.ErrorKind,
	}
}

// ListImageArchives discovers and catalogs the archives in a directory. Any
// failure fails the whole listing.
func (s *Service) ListImageArchives(ctx context.Context, req *api.ListImageArchivesRequest) (*api.ListImageArchivesResponse, error) {
	start := time.Now()
	dir := req.Path
	if dir == "" {
		dir = s.mounts.DefaultMountPoint()
	}

	paths, err := s.scanner.Discover(ctx, dir)
	if err != nil {
		s.record("ListImageArchives", OutcomeError, start)
		return nil, err
	}
	entries, err := s.cataloger.CatalogAll(ctx, paths)
	if err != nil {
		s.record("ListImageArchives", OutcomeError, start)
		return nil, err
	}

	resp := &api.ListImageArchivesResponse{ImageArchives: make([]api.ImageArchive, 0, len(entries))}
	for _, e := range entries {
		resp.ImageArchives = append(resp.ImageArchives, api.ImageArchive{
			FilePath:       e.FilePath,
			FileSizeBytes:  e.SizeBytes,
			Sha256Checksum: e.ContentHash,
		})
	}
	s.record("ListImageArchives", OutcomeSuccess, start)
	return resp, nil
}

// LoadImageArchive copies an archive into the registry
func (s *Service) LoadImageArchive(ctx context.Context, req *api.LoadImageArchiveRequest) (*api.LoadImageArchiveResponse, error) {
	start := time.Now()
	if err := validateLoad(req); err != nil {
		s.record("LoadImageArchive", OutcomeError, start)
		return nil, err
	}

	res := s.loader.Load(ctx, req.FilePath, req.ImageName, req.ImageTag, req.ExpectedSha256Checksum)
	s.record("LoadImageArchive", outcomeOf(res.Succeeded, false), start)
	return &api.LoadImageArchiveResponse{
		IsSuccess:    res.Succeeded,
		ErrorMessage: res.ErrorMessage,
		Reference:    res.Reference,
		ErrorKind:    res.ErrorKind,
	}, nil
}

// InspectImageArchive returns the inspect tool's raw output for an archive
func (s *Service) InspectImageArchive(ctx context.Context, req *api.InspectImageArchiveRequest) (*api.InspectImageArchiveResponse, error) {
	start := time.Now()
	if req.FilePath == "" {
		s.record("InspectImageArchive", OutcomeError, start)
		return nil, system.MalformedInput("InspectImageArchive", "file_path is required")
	}

	res := s.loader.Inspect(ctx, req.FilePath)
	s.record("InspectImageArchive", outcomeOf(res.Succeeded, false), start)
	return &api.InspectImageArchiveResponse{
		IsSuccess: res.Succeeded,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		ErrorKind: res.ErrorKind,
	}, nil
}

func validateLoad(req *api.LoadImageArchiveRequest) error {
	var missing []string
	if req.FilePath == "" {
		missing = append(missing, "file_path")
	}
	if req.ImageName == "" {
		missing = append(missing, "image_name")
	}
	if req.ImageTag == "" {
		missing = append(missing, "image_tag")
	}
	if len(missing) > 0 {
		return system.MalformedInput("LoadImageArchive", "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
