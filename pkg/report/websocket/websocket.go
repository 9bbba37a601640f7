// Package websocket serves encoded frames to websocket clients.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/cpudbg/pkg/framework"
)

// Path is where frames are served.
const Path = "/frames"

// clientQueueSize is the number of packets buffered per client.
const clientQueueSize = 16

// Server broadcasts every packet to all connected clients. A client not
// keeping up loses packets.
type Server struct {
	Addr string

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn   *websocket.Conn
	pktCh  chan []byte
	doneCh chan struct{}
}

// NewServer creates a Server listening on addr.
func NewServer(addr string) *Server {
	return &Server{Addr: addr, clients: make(map[*client]struct{})}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "websocket:" + s.Addr
}

// Handler returns the http.Handler serving Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, websocket.Handler(s.serve))
	return mux
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}

// WritePacket implements report.PacketWriter.
func (s *Server) WritePacket(pkt []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.clients {
		select {
		case c.pktCh <- pkt:
		default:
			glog.V(2).Infof("websocket %s: client behind, packet dropped", c.conn.Request().RemoteAddr)
		}
	}
	return nil
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{Handler: s.Handler()}
	glog.Infof("websocket: serving %s on %s", Path, ln.Addr())
	return fx.RunWithContextCloser(ctx, server, func() error {
		return server.Serve(ln)
	})
}

func (s *Server) serve(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	c := &client{conn: conn, pktCh: make(chan []byte, clientQueueSize), doneCh: make(chan struct{})}
	s.lock.Lock()
	s.clients[c] = struct{}{}
	s.lock.Unlock()
	glog.V(2).Infof("websocket: client %s connected", conn.Request().RemoteAddr)
	defer func() {
		s.lock.Lock()
		delete(s.clients, c)
		s.lock.Unlock()
		glog.V(2).Infof("websocket: client %s disconnected", conn.Request().RemoteAddr)
	}()

	// clients don't send anything, reading detects the close.
	go func() {
		defer close(c.doneCh)
		var msg []byte
		for websocket.Message.Receive(conn, &msg) == nil {
		}
	}()

	for {
		select {
		case pkt := <-c.pktCh:
			if err := websocket.Message.Send(conn, pkt); err != nil {
				return
			}
		case <-c.doneCh:
			return
		}
	}
}
