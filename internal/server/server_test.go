package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/device"
	"github.com/unitexe/skopos/internal/rpc"
	"github.com/unitexe/skopos/internal/service"
)

type listOnly struct {
	service.Operations
}

func (listOnly) ListUsbDevices(context.Context, *api.ListUsbDevicesRequest) (*api.ListUsbDevicesResponse, error) {
	return &api.ListUsbDevicesResponse{Devices: []device.Device{{Path: "/dev/sdb"}}}, nil
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

func TestServeAndShutdown(t *testing.T) {
	grpcLis, httpLis := listen(t), listen(t)
	s := New(listOnly{}, Options{
		GRPCAddr:        grpcLis.Addr().String(),
		HTTPAddr:        httpLis.Addr().String(),
		ShutdownTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, grpcLis, httpLis)
	}()

	client, err := rpc.Dial(grpcLis.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.ListUsbDevices(context.Background(), &api.ListUsbDevicesRequest{})
	require.NoError(t, err)
	assert.Equal(t, []device.Device{{Path: "/dev/sdb"}}, resp.Devices)

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	hc, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)

	httpResp, err := http.Get("http://" + httpLis.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeWithoutHTTP(t *testing.T) {
	grpcLis := listen(t)
	s := New(listOnly{}, Options{GRPCAddr: grpcLis.Addr().String(), ShutdownTimeout: time.Second})
	assert.Nil(t, s.httpServer)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, grpcLis, nil)
	}()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
