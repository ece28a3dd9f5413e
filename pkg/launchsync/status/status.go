// Package status asks a login server whether it is online, locked and how
// many players are connected, using a single UDP datagram exchange.
package status

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

const (
	// DefaultPort is used when an address has no port.
	DefaultPort = 20042

	// DefaultTimeout bounds a probe when the caller passes zero.
	DefaultTimeout = 5 * time.Second

	// ResponseSize is the minimum length of a status response.
	ResponseSize = 6
)

// Request is the status request datagram.
var Request = []byte{0x00, 0x20}

// ErrInvalidAddress is returned for addresses that cannot be probed.
var ErrInvalidAddress = errors.New("invalid server address")

// Probe sends a status request to address and waits up to timeout for the
// reply. It never fails: any error, including a timeout or a short reply,
// yields the offline status.
func Probe(ctx context.Context, address string, timeout time.Duration) types.ServerStatus {
	s, err := ProbeDetailed(ctx, address, timeout)
	if err != nil {
		logging.Get("status").Debug("probe failed", "address", address, "error", err)
	}
	return s
}

// ProbeDetailed is Probe with the cause of an offline result. The status is
// types.Offline whenever err is non-nil.
func ProbeDetailed(ctx context.Context, address string, timeout time.Duration) (types.ServerStatus, error) {
	const op = "probe"
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	target, err := ParseAddress(address)
	if err != nil {
		return types.Offline, types.NewError(types.KindNetwork, op, address, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", target)
	if err != nil {
		return types.Offline, types.NewError(types.KindUnknown, op, target, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return types.Offline, types.NewError(types.KindNetwork, op, target, err)
	}
	// Cancellation of the parent context unblocks the read immediately.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write(Request); err != nil {
		return types.Offline, types.NewError(types.KindUnknown, op, target, err)
	}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return types.Offline, types.NewError(types.KindCanceled, op, target, ctxErr)
		}
		return types.Offline, types.NewError(types.KindNetwork, op, target, err)
	}

	s, err := DecodeStatus(buf[:n])
	if err != nil {
		return types.Offline, types.NewError(types.KindProtocol, op, target, err)
	}
	return s, nil
}

// DecodeStatus parses a status response: byte 0 online, byte 1 locked,
// bytes 2-5 the player count as a little-endian int32. Trailing bytes are
// ignored.
func DecodeStatus(b []byte) (types.ServerStatus, error) {
	if len(b) < ResponseSize {
		return types.Offline, fmt.Errorf("%w: %d bytes, want %d", types.ErrMalformedStatus, len(b), ResponseSize)
	}
	return types.ServerStatus{
		Online:  b[0] != 0,
		Locked:  b[1] != 0,
		Players: int32(binary.LittleEndian.Uint32(b[2:6])),
	}, nil
}

// EncodeStatus renders s in the response format read by DecodeStatus.
func EncodeStatus(s types.ServerStatus) []byte {
	b := make([]byte, ResponseSize)
	if s.Online {
		b[0] = 1
	}
	if s.Locked {
		b[1] = 1
	}
	binary.LittleEndian.PutUint32(b[2:], uint32(s.Players))
	return b
}

// ParseAddress turns "host" or "host:port" into a dialable "host:port",
// adding DefaultPort when the port is missing. Bracketed IPv6 literals are
// accepted with or without a port.
func ParseAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		// No port: a bare host name, IPv4 address, or IPv6 literal.
		host = strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
		if strings.ContainsAny(host, "[]") || (strings.Contains(host, ":") && net.ParseIP(host) == nil) {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
		}
		return net.JoinHostPort(host, strconv.Itoa(DefaultPort)), nil
	}

	if host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidAddress, address)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return "", fmt.Errorf("%w: bad port %q", ErrInvalidAddress, port)
	}
	return net.JoinHostPort(host, port), nil
}
