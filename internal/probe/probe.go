// internal/probe/probe.go
package probe

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/juju/errors"

	"github.com/tamzrod/statusd/internal/healthpoll"
)

// HTTP probes url with GET and reports healthy on any 2xx response.
// A nil client uses http.DefaultClient; the deadline comes from ctx.
func HTTP(url string, client *http.Client) healthpoll.Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, errors.Trace(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return false, errors.Annotatef(err, "GET %s", url)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
	}
}

// TCP reports healthy when endpoint accepts a connection.
func TCP(endpoint string) healthpoll.Probe {
	return func(ctx context.Context) (bool, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", endpoint)
		if err != nil {
			return false, errors.Annotatef(err, "dial %s", endpoint)
		}
		_ = conn.Close()
		return true, nil
	}
}
