package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/service"
)

// Client calls a remote Ormos service
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

var _ service.Operations = (*Client)(nil)

// Dial connects to target (host:port) without transport security
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", target, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection. Calls must use the json content
// subtype, which the connection may already set as a default call option.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close releases the connection when the client owns it
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(method), req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func (c *Client) ListUsbDevices(ctx context.Context, req *api.ListUsbDevicesRequest) (*api.ListUsbDevicesResponse, error) {
	return invoke[api.ListUsbDevicesResponse](ctx, c.cc, "ListUsbDevices", req)
}

func (c *Client) MountUsbDevice(ctx context.Context, req *api.MountUsbDeviceRequest) (*api.MountUsbDeviceResponse, error) {
	return invoke[api.MountUsbDeviceResponse](ctx, c.cc, "MountUsbDevice", req)
}

func (c *Client) UnmountUsbDevice(ctx context.Context, req *api.UnmountUsbDeviceRequest) (*api.UnmountUsbDeviceResponse, error) {
	return invoke[api.UnmountUsbDeviceResponse](ctx, c.cc, "UnmountUsbDevice", req)
}

func (c *Client) ListImageArchives(ctx context.Context, req *api.ListImageArchivesRequest) (*api.ListImageArchivesResponse, error) {
	return invoke[api.ListImageArchivesResponse](ctx, c.cc, "ListImageArchives", req)
}

func (c *Client) LoadImageArchive(ctx context.Context, req *api.LoadImageArchiveRequest) (*api.LoadImageArchiveResponse, error) {
	return invoke[api.LoadImageArchiveResponse](ctx, c.cc, "LoadImageArchive", req)
}

func (c *Client) InspectImageArchive(ctx context.Context, req *api.InspectImageArchiveRequest) (*api.InspectImageArchiveResponse, error) {
	return invoke[api.InspectImageArchiveResponse](ctx, c.cc, "InspectImageArchive", req)
}
