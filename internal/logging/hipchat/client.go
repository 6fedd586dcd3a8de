package hipchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Notification is the JSON body of a room notification.
type Notification struct {
	Color   Color  `json:"color"`
	Message string `json:"message"`
	Notify  bool   `json:"notify"`
}

// Result describes the API's answer to one notification.
type Result struct {
	StatusCode int
	Reason     string
}

func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client posts notifications to a single room.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(conn ConnectionInfo, httpClient *http.Client) *Client {
	return &Client{
		url:        conn.NotificationURL(),
		httpClient: httpClient,
	}
}

// Post sends one notification. Any HTTP response, successful or not, is
// reported through Result; an error means no response was received.
func (c *Client) Post(ctx context.Context, n Notification) (Result, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return Result{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
	}, nil
}

// Close releases idle connections held by the transport.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func reasonPhrase(resp *http.Response) string {
	if reason, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
