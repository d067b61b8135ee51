package rpc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/device"
	"github.com/unitexe/skopos/internal/system"
)

// stubOps answers every call from fixed values
type stubOps struct {
	devices  []device.Device
	listErr  error
	lastLoad *api.LoadImageArchiveRequest
}

func (s *stubOps) ListUsbDevices(context.Context, *api.ListUsbDevicesRequest) (*api.ListUsbDevicesResponse, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &api.ListUsbDevicesResponse{Devices: s.devices}, nil
}

func (s *stubOps) MountUsbDevice(_ context.Context, req *api.MountUsbDeviceRequest) (*api.MountUsbDeviceResponse, error) {
	if req.DevicePath == "" {
		return nil, system.MalformedInput("MountUsbDevice", "device_path is required")
	}
	return &api.MountUsbDeviceResponse{IsSuccess: true, MountPoint: "/mnt/usb"}, nil
}

func (s *stubOps) UnmountUsbDevice(context.Context, *api.UnmountUsbDeviceRequest) (*api.UnmountUsbDeviceResponse, error) {
	return &api.UnmountUsbDeviceResponse{
		ErrorMessage: "umount: /mnt/usb: target is busy.",
		ErrorKind:    system.KindExecutionFailure,
	}, nil
}

func (s *stubOps) ListImageArchives(_ context.Context, req *api.ListImageArchivesRequest) (*api.ListImageArchivesResponse, error) {
	return nil, system.ResourceError("read archive directory", &fs.PathError{Op: "open", Path: req.Path, Err: fs.ErrNotExist})
}

func (s *stubOps) LoadImageArchive(_ context.Context, req *api.LoadImageArchiveRequest) (*api.LoadImageArchiveResponse, error) {
	s.lastLoad = req
	return &api.LoadImageArchiveResponse{IsSuccess: true, Reference: "localhost:5000/" + req.ImageName + ":" + req.ImageTag}, nil
}

func (s *stubOps) InspectImageArchive(context.Context, *api.InspectImageArchiveRequest) (*api.InspectImageArchiveResponse, error) {
	return &api.InspectImageArchiveResponse{IsSuccess: true, Stdout: "{\"Name\":\"app\"}\n"}, nil
}

func startServer(t *testing.T, ops *stubOps) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor()))
	Register(srv, ops)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestListUsbDevicesRoundTrip(t *testing.T) {
	devices := []device.Device{
		{Path: "/dev/sda"},
		{Path: "/dev/sda1", Mounted: true, MountPoint: "/mnt/usb"},
	}
	client := startServer(t, &stubOps{devices: devices})

	resp, err := client.ListUsbDevices(context.Background(), &api.ListUsbDevicesRequest{})
	require.NoError(t, err)
	assert.Equal(t, devices, resp.Devices)
}

func TestListFailureIsProtocolError(t *testing.T) {
	client := startServer(t, &stubOps{listErr: system.ResourceError("read device namespace", errors.New("input/output error"))})

	_, err := client.ListUsbDevices(context.Background(), &api.ListUsbDevicesRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestMalformedRequest(t *testing.T) {
	client := startServer(t, &stubOps{})

	_, err := client.MountUsbDevice(context.Background(), &api.MountUsbDeviceRequest{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, system.KindMalformedInput, system.KindOf(err))
	assert.Contains(t, err.Error(), "device_path is required")
}

func TestMissingDirectoryIsNotFound(t *testing.T) {
	client := startServer(t, &stubOps{})

	_, err := client.ListImageArchives(context.Background(), &api.ListImageArchivesRequest{Path: "/mnt/missing"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, system.KindResourceAccess, system.KindOf(err))
}

func TestInBandFailure(t *testing.T) {
	client := startServer(t, &stubOps{})

	resp, err := client.UnmountUsbDevice(context.Background(), &api.UnmountUsbDeviceRequest{})
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess)
	assert.Equal(t, "umount: /mnt/usb: target is busy.", resp.ErrorMessage)
	assert.Equal(t, system.KindExecutionFailure, resp.ErrorKind)
}

func TestRequestFieldsArrive(t *testing.T) {
	ops := &stubOps{}
	client := startServer(t, ops)

	resp, err := client.LoadImageArchive(context.Background(), &api.LoadImageArchiveRequest{
		FilePath:               "/mnt/usb/app.tar",
		ImageName:              "app",
		ImageTag:               "v1",
		ExpectedSha256Checksum: "abc",
	})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess)
	assert.Equal(t, "localhost:5000/app:v1", resp.Reference)
	require.NotNil(t, ops.lastLoad)
	assert.Equal(t, "abc", ops.lastLoad.ExpectedSha256Checksum)

	inspect, err := client.InspectImageArchive(context.Background(), &api.InspectImageArchiveRequest{FilePath: "/mnt/usb/app.tar"})
	require.NoError(t, err)
	assert.Equal(t, "{\"Name\":\"app\"}\n", inspect.Stdout)
	assert.Empty(t, inspect.Stderr)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"malformed", system.MalformedInput("op", "bad"), codes.InvalidArgument},
		{"not exist", system.ResourceError("op", fs.ErrNotExist), codes.NotFound},
		{"permission", system.ResourceError("op", fmt.Errorf("open: %w", fs.ErrPermission)), codes.PermissionDenied},
		{"other resource", system.ResourceError("op", errors.New("io")), codes.Internal},
		{"timeout", system.NewError(system.KindTimeout, "mount", "timed out", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"canceled", system.NewError(system.KindCanceled, "mount", "canceled", context.Canceled), codes.Canceled},
		{"untyped", errors.New("boom"), codes.Internal},
		{"already status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}
