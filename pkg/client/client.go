package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/halo-hpc/halo/api/proto"
	"github.com/halo-hpc/halo/pkg/types"
)

// Client talks to a running manager over its control socket.
type Client struct {
	conn *grpc.ClientConn
	mgmt proto.MgmtClient
}

// New connects to the manager's control socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to socket %q: %w", socketPath, err)
	}
	return &Client{
		conn: conn,
		mgmt: proto.NewMgmtClient(conn),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Monitor fetches a snapshot of every resource's status.
func (c *Client) Monitor(ctx context.Context) (*proto.ClusterState, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.mgmt.Monitor(ctx, &proto.MonitorRequest{})
}

// PrintStatus renders a snapshot one line per resource:
//
//	OK: [kind: mgs, mountpoint: /mnt/mgs, target: mgspool/mgs]
//
// A resource running on its home host prints as OK; every other status
// prints its descriptive form. With excludeNormal set, OK lines are
// suppressed.
func PrintStatus(w io.Writer, state *proto.ClusterState, excludeNormal bool) {
	for _, res := range state.Resources {
		status := types.ResourceStatus(res.Status)
		display := "OK"
		if status != types.StatusRunningOnHome {
			display = status.Describe()
		} else if excludeNormal {
			continue
		}

		params := make([]string, 0, len(res.Parameters))
		for _, kv := range res.Parameters {
			params = append(params, fmt.Sprintf("%s: %s", kv.Key, kv.Value))
		}
		fmt.Fprintf(w, "%s: [%s]\n", display, strings.Join(params, ", "))
	}
}
