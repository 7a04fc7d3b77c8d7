// Package client talks to the auction enclave: one JSON request per connection.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/escrowauction/enclaveapi"
)

const (
	TransportVsock = "vsock"
	TransportTCP   = "tcp"
)

// Target addresses the enclave. Address is used for tcp, CID and Port for vsock.
type Target struct {
	Transport string
	Address   string
	CID       uint32
	Port      uint32
}

func (t Target) String() string {
	if t.Transport == TransportTCP {
		return "tcp://" + t.Address
	}
	return fmt.Sprintf("vsock://%d:%d", t.CID, t.Port)
}

// Client sends requests to a single enclave target
type Client struct {
	target Target
}

func New(target Target) (*Client, error) {
	switch target.Transport {
	case TransportTCP:
		if target.Address == "" {
			return nil, fmt.Errorf("tcp target requires an address")
		}
	case TransportVsock:
		if target.Port == 0 {
			return nil, fmt.Errorf("vsock target requires a port")
		}
	default:
		return nil, fmt.Errorf("unsupported transport %q", target.Transport)
	}
	return &Client{target: target}, nil
}

// Dial opens a connection to target
func Dial(ctx context.Context, target Target) (net.Conn, error) {
	switch target.Transport {
	case TransportTCP:
		var d net.Dialer
		return d.DialContext(ctx, "tcp", target.Address)
	case TransportVsock:
		// vsock has no context-aware dialer
		conn, err := vsock.Dial(target.CID, target.Port, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("unsupported transport %q", target.Transport)
}

type closeWriter interface {
	CloseWrite() error
}

// Do sends req and decodes the enclave's response. A response with
// Success=false is returned without error; err covers transport failures only.
func (c *Client) Do(ctx context.Context, req enclaveapi.EnclaveRequest) (*enclaveapi.EnclaveResponse, error) {
	conn, err := Dial(ctx, c.target)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.target, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send %s request: %w", req.Type, err)
	}
	// The server reads until EOF
	cw, ok := conn.(closeWriter)
	if !ok {
		return nil, errors.New("connection does not support half-close")
	}
	if err := cw.CloseWrite(); err != nil {
		return nil, fmt.Errorf("close write: %w", err)
	}

	var resp enclaveapi.EnclaveResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.Type, err)
	}
	return &resp, nil
}

// DoWithTimeout is Do with a per-request timeout
func (c *Client) DoWithTimeout(req enclaveapi.EnclaveRequest, timeout time.Duration) (*enclaveapi.EnclaveResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Do(ctx, req)
}
