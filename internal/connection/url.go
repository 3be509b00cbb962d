package connection

import (
	"fmt"
	"net/url"
	"strings"
)

// StreamURL derives the streaming channel URL from a configured endpoint. http and https
// are rewritten to ws and wss, ws and wss are kept, and a bare host is assumed secure.
// The device identity is appended as the userId query parameter.
func StreamURL(endpoint, deviceID string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("%w: empty streaming endpoint", ErrTransportOpen)
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "wss://" + endpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: parse endpoint: %w", ErrTransportOpen, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrTransportOpen, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: endpoint has no host", ErrTransportOpen)
	}

	q := u.Query()
	q.Set("userId", deviceID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
