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

// Start requests the daemon to start.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Snapvault.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Snapvault.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Snapvault.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionStart starts the capture session.
func (c *Client) SessionStart() (*SessionStartResponse, error) {
	var resp SessionStartResponse
	if err := c.client.Call("Snapvault.SessionStart", SessionStartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionStop stops the capture session.
func (c *Client) SessionStop() (*SessionStopResponse, error) {
	var resp SessionStopResponse
	if err := c.client.Call("Snapvault.SessionStop", SessionStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Capture grabs one frame, optionally into an override collection.
func (c *Client) Capture(collection string) (*CaptureResponse, error) {
	var resp CaptureResponse
	req := CaptureRequest{Collection: collection}
	if err := c.client.Call("Snapvault.Capture", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmPending persists the staged capture.
func (c *Client) ConfirmPending() (*ConfirmPendingResponse, error) {
	var resp ConfirmPendingResponse
	if err := c.client.Call("Snapvault.ConfirmPending", ConfirmPendingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RejectPending drops the staged capture.
func (c *Client) RejectPending() (*RejectPendingResponse, error) {
	var resp RejectPendingResponse
	if err := c.client.Call("Snapvault.RejectPending", RejectPendingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectCollection changes the current capture target.
func (c *Client) SelectCollection(key string) (*SelectCollectionResponse, error) {
	var resp SelectCollectionResponse
	req := SelectCollectionRequest{Key: key}
	if err := c.client.Call("Snapvault.SelectCollection", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetConfirmation toggles the require-confirmation preference.
func (c *Client) SetConfirmation(enabled bool) (*SetConfirmationResponse, error) {
	var resp SetConfirmationResponse
	req := SetConfirmationRequest{Enabled: enabled}
	if err := c.client.Call("Snapvault.SetConfirmation", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CollectionList returns built-in and custom collections with counts.
func (c *Client) CollectionList() (*CollectionListResponse, error) {
	var resp CollectionListResponse
	if err := c.client.Call("Snapvault.CollectionList", CollectionListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CollectionAdd registers a custom collection.
func (c *Client) CollectionAdd(label string) (*CollectionAddResponse, error) {
	var resp CollectionAddResponse
	req := CollectionAddRequest{Label: label}
	if err := c.client.Call("Snapvault.CollectionAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportStart launches an export batch.
func (c *Client) ExportStart(username string) (*ExportStartResponse, error) {
	var resp ExportStartResponse
	req := ExportStartRequest{Username: username}
	if err := c.client.Call("Snapvault.ExportStart", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExportStatus fetches the latest batch snapshot.
func (c *Client) ExportStatus() (*ExportStatusResponse, error) {
	var resp ExportStatusResponse
	if err := c.client.Call("Snapvault.ExportStatus", ExportStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LastExportName fetches the remembered export username.
func (c *Client) LastExportName() (*LastExportNameResponse, error) {
	var resp LastExportNameResponse
	if err := c.client.Call("Snapvault.LastExportName", LastExportNameRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Snapvault.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
