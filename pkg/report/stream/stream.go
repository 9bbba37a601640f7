// Package stream carries encoded frames over a byte stream. Each packet is
// prefixed by its length, 4 bytes little-endian.
package stream

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
)

// MaxPacketSize limits the size of a packet read.
const MaxPacketSize = 1 << 20

// DefaultWriteTimeout bounds writing one packet to a peer.
const DefaultWriteTimeout = 200 * time.Millisecond

// ReadWriter reads and writes length prefixed packets.
type ReadWriter struct {
	io.ReadWriter
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{s}
}

// ReadPacket reads one packet.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(p, hdr[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size > MaxPacketSize {
		return nil, fmt.Errorf("packet size %d exceeds limit", size)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p, pkt)
	return pkt, err
}

// WritePacket writes one packet.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	_, err := p.Write(buf)
	return err
}

// Client keeps a connection to a stream peer and writes packets to it.
// Packets written while disconnected are dropped. A peer not draining
// within WriteTimeout is disconnected.
type Client struct {
	Network string
	Address string
	// RetryInterval is the pause between connection attempts.
	RetryInterval time.Duration
	// WriteTimeout bounds each packet write, 0 for no limit.
	WriteTimeout time.Duration

	lock sync.Mutex
	conn net.Conn
	rw   *ReadWriter
}

// NewClient creates a Client from URL like tcp://host:port or
// unix:///path/to/socket.
func NewClient(streamURL string) (*Client, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, err
	}
	c := &Client{Network: u.Scheme, RetryInterval: time.Second, WriteTimeout: DefaultWriteTimeout}
	switch u.Scheme {
	case "tcp", "tcp4", "tcp6":
		c.Address = u.Host
	case "unix":
		c.Address = u.Path
	default:
		return nil, fmt.Errorf("unsupported stream scheme %q", u.Scheme)
	}
	return c, nil
}

// Name implements framework.Named.
func (c *Client) Name() string {
	return "stream:" + c.Address
}

// Connected indicates whether a peer is connected.
func (c *Client) Connected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.conn != nil
}

// WritePacket implements report.PacketWriter.
func (c *Client) WritePacket(pkt []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.rw == nil {
		glog.V(3).Infof("stream %s: not connected, packet dropped", c.Address)
		return nil
	}
	if c.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
	}
	if err := c.rw.WritePacket(pkt); err != nil {
		glog.Warningf("stream %s: write error: %v", c.Address, err)
		c.conn.Close()
		c.conn, c.rw = nil, nil
		return err
	}
	return nil
}

// Run implements framework.Runnable.
func (c *Client) Run(ctx context.Context) error {
	var dialer net.Dialer
	for {
		if !c.Connected() {
			conn, err := dialer.DialContext(ctx, c.Network, c.Address)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				glog.V(2).Infof("stream %s: dial error: %v", c.Address, err)
			} else {
				glog.Infof("stream %s: connected", c.Address)
				c.lock.Lock()
				c.conn, c.rw = conn, New(conn)
				c.lock.Unlock()
			}
		}
		select {
		case <-ctx.Done():
			c.close()
			return ctx.Err()
		case <-time.After(c.RetryInterval):
		}
	}
}

func (c *Client) close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn, c.rw = nil, nil
	}
}
