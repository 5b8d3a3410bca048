package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mark requests manual attendance for the face in view.
func (c *Client) Mark() (*MarkResponse, error) {
	var resp MarkResponse
	if err := c.client.Call(serviceName+".Mark", MarkRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Records lists ledger records.
func (c *Client) Records(req RecordsRequest) (*RecordsResponse, error) {
	var resp RecordsResponse
	if err := c.client.Call(serviceName+".Records", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns today's attendance summary.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call(serviceName+".Stats", StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Gallery describes the loaded gallery.
func (c *Client) Gallery() (*GalleryResponse, error) {
	var resp GalleryResponse
	if err := c.client.Call(serviceName+".Gallery", GalleryRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
