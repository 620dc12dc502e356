package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// checkProxyTimeout bounds the SOCKS5 greeting performed by CheckProxy.
const checkProxyTimeout = 2 * time.Second

const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// CheckProxy verifies that the configured proxy accepts a SOCKS5 greeting
// without authentication. It returns nil when no proxy is configured.
func (c *Client) CheckProxy(ctx context.Context) error {
	if c.proxyAddress == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProxyUnreachable, c.proxyAddress, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}

	// version, one method, "no authentication"
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnreachable, err)
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: %s: greeting timed out", ErrProxyNotSOCKS5, c.proxyAddress)
		}
		return fmt.Errorf("%w: %s: %w", ErrProxyNotSOCKS5, c.proxyAddress, err)
	}
	if resp[0] != socks5Version || resp[1] != socks5AuthNone {
		return fmt.Errorf("%w: %s answered %#x %#x", ErrProxyNotSOCKS5, c.proxyAddress, resp[0], resp[1])
	}
	return nil
}
