package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestServer_ReportsStatus(t *testing.T) {
	t.Parallel()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := New()

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	check := func() healthpb.HealthCheckResponse_ServingStatus {
		callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer callCancel()

		resp, checkErr := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, checkErr)

		return resp.GetStatus()
	}

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	srv.SetServing(true)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check())

	srv.SetServing(false)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())

	cancel()

	select {
	case err = <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "health server did not stop")
	}
}

func TestServer_ListenFailure(t *testing.T) {
	t.Parallel()

	err := New().ListenAndServe(context.Background(), "256.0.0.1:bad")
	require.Error(t, err)
}
