// Package endpoint wraps a UDP socket with the send/receive-side
// impairment shim and the receive timeout the protocol's FSMs rely on.
// It has no notion of frames or sequence numbers; it only moves bytes.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"time"

	"rftp/proto/perrs"
)

// Endpoint is a connectionless datagram socket with optional injected
// impairment. It is safe for one goroutine to Send and one goroutine to
// Recv concurrently; it is not safe for concurrent Recv calls.
type Endpoint struct {
	conn      *net.UDPConn
	impair    *Impairment
	closeOnce bool
}

// Listen binds a receiving endpoint to host:port. port == 0 picks an
// ephemeral port, which LocalAddr then reports.
func Listen(host string, port int, impair *Impairment) (*Endpoint, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: bind %s:%d: %v", perrs.ErrTransportFatal, host, port, err)
	}
	return newEndpoint(conn, impair), nil
}

// Dial creates a sending endpoint with an ephemeral local port, bound for
// the given destination.
func Dial(destHost string, destPort int, impair *Impairment) (*Endpoint, error) {
	raddr := &net.UDPAddr{IP: net.ParseIP(destHost), Port: destPort}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s:%d: %v", perrs.ErrTransportFatal, destHost, destPort, err)
	}
	return newEndpoint(conn, impair), nil
}

func newEndpoint(conn *net.UDPConn, impair *Impairment) *Endpoint {
	if impair == nil {
		impair = none()
	}
	return &Endpoint{conn: conn, impair: impair}
}

// LocalAddr reports the bound local address.
func (e *Endpoint) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// SendTo transmits b to addr. A loss draw may silently discard it without
// error (the call still "succeeds" from the caller's point of view,
// matching the spec's "may drop, return success without transmitting").
func (e *Endpoint) SendTo(b []byte, addr *net.UDPAddr) error {
	if e.impair.shouldDrop() {
		return nil
	}
	e.impair.delay()
	_, err := e.conn.WriteToUDP(b, addr)
	if err != nil {
		return fmt.Errorf("%w: send to %s: %v", perrs.ErrTransportFatal, addr, err)
	}
	return nil
}

// Send transmits b to the endpoint's connected peer (Dial-created
// endpoints only).
func (e *Endpoint) Send(b []byte) error {
	if e.impair.shouldDrop() {
		return nil
	}
	e.impair.delay()
	_, err := e.conn.Write(b)
	if err != nil {
		return fmt.Errorf("%w: send: %v", perrs.ErrTransportFatal, err)
	}
	return nil
}

// RecvBufferSize returns the buffer size a caller should allocate to
// receive one datagram whose payload is at most segmentSize bytes: the
// 32-byte frame header+checksum, the payload, and a small slop for
// transports that pad.
func RecvBufferSize(segmentSize int) int {
	const headerAndChecksum = 32
	const slop = 64
	return headerAndChecksum + segmentSize + slop
}

// Recv blocks for up to timeout for the next inbound datagram, applying
// receive-side impairment (a dropped datagram loops to the next one; a
// delayed one sleeps before being returned). It returns perrs.ErrTimeout
// on expiry.
func (e *Endpoint) Recv(bufSize int, timeout time.Duration) ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, bufSize)
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil, perrs.ErrTimeout
		}
		if err := e.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, fmt.Errorf("%w: set read deadline: %v", perrs.ErrTransportFatal, err)
		}

		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, nil, perrs.ErrTimeout
			}
			return nil, nil, fmt.Errorf("%w: recv: %v", perrs.ErrTransportFatal, err)
		}

		if e.impair.shouldDrop() {
			continue
		}
		e.impair.delay()

		out := make([]byte, n)
		copy(out, buf[:n])
		return out, addr, nil
	}
}

// Close releases the underlying socket. Idempotent.
func (e *Endpoint) Close() error {
	if e.closeOnce {
		return nil
	}
	e.closeOnce = true
	return e.conn.Close()
}
