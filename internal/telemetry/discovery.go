package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// ErrNoService is returned by Discover when none of the hosts accept connections.
var ErrNoService = errors.New("no telemetry service found")

// DefaultHost is used when discovery finds nothing.
const DefaultHost = "127.0.0.1"

// TeamHosts returns the usual places a team's robot can be reached, in probe order:
// a local simulator, the radio address 10.TE.AM.2, and the USB tether address.
func TeamHosts(team int) []string {
	return []string{
		"localhost",
		fmt.Sprintf("10.%d.%d.2", team/100, team%100),
		"172.22.11.2",
	}
}

// IsServiceAlive reports whether host accepts TCP connections on port within timeout.
func IsServiceAlive(ctx context.Context, host string, port int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Discover returns the first host with a live service on port.
// If none answers it returns DefaultHost together with ErrNoService.
func Discover(ctx context.Context, logger *slog.Logger, hosts []string, port int, timeout time.Duration) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return DefaultHost, err
		}
		logger.Debug("Probing for robot", "host", host, "port", port)
		if IsServiceAlive(ctx, host, port, timeout) {
			logger.Info("Robot found", "host", host)
			return host, nil
		}
	}
	logger.Warn("No robot found, using default host", "host", DefaultHost)
	return DefaultHost, ErrNoService
}
