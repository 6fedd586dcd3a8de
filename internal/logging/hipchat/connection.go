package hipchat

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseAddress is the public HipChat API root.
const DefaultBaseAddress = "https://api.hipchat.com/"

var (
	// ErrConfiguration is wrapped by every connection or option validation error.
	ErrConfiguration = errors.New("hipchat: invalid configuration")
	// ErrNilConnectionInfo is returned when a sink is built without connection info.
	ErrNilConnectionInfo = errors.New("hipchat: connection info is required")
)

// ConnectionInfo identifies the room notifications are posted to. A sink
// copies it at construction, later changes have no effect.
type ConnectionInfo struct {
	// BaseAddress defaults to DefaultBaseAddress when empty.
	BaseAddress string
	Room        string
	APIToken    string
}

func NewConnectionInfo(room, apiToken string) *ConnectionInfo {
	return &ConnectionInfo{
		BaseAddress: DefaultBaseAddress,
		Room:        room,
		APIToken:    apiToken,
	}
}

func (c ConnectionInfo) Validate() error {
	if strings.TrimSpace(c.Room) == "" {
		return fmt.Errorf("%w: room is required", ErrConfiguration)
	}
	if strings.TrimSpace(c.APIToken) == "" {
		return fmt.Errorf("%w: api token is required", ErrConfiguration)
	}

	base := c.baseAddress()
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%w: base address %q: %v", ErrConfiguration, base, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: base address %q is not an absolute URL", ErrConfiguration, base)
	}
	return nil
}

// NotificationURL is {base}v2/room/{room}/notification?auth_token={token}.
// Room and token are escaped so the API receives them unchanged.
func (c ConnectionInfo) NotificationURL() string {
	base := c.baseAddress()
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "v2/room/" + url.PathEscape(c.Room) + "/notification?auth_token=" + url.QueryEscape(c.APIToken)
}

func (c ConnectionInfo) baseAddress() string {
	if c.BaseAddress == "" {
		return DefaultBaseAddress
	}
	return c.BaseAddress
}
