package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

// Registrar announces a receiver on the broker and publishes its frames.
// Meta is retained on <id>/meta while connected and cleared on shutdown or
// by the will when the connection drops.
type Registrar struct {
	Conn *Conn
	ID   string
	Meta msgs.Meta
	// Stats optionally supplies counters published after every frame.
	Stats func() interface{}
	// PubTimeout bounds waiting for a publish.
	PubTimeout time.Duration

	metaJSON []byte
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL, id string, meta msgs.Meta) (*Registrar, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+ReceiverTopic(id, TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("cpudbg:" + id)
	}
	r := &Registrar{
		Conn:       NewConn(opts, topicPrefix),
		ID:         id,
		Meta:       meta,
		PubTimeout: time.Second,
		metaJSON:   metaJSON,
	}
	r.Conn.OnConnect = func(*Conn) { r.announce() }
	return r, nil
}

// Name implements framework.Named.
func (r *Registrar) Name() string {
	return "mqtt:" + r.ID
}

// WritePacket implements report.PacketWriter.
func (r *Registrar) WritePacket(pkt []byte) error {
	if !r.Conn.Client.IsConnected() {
		return nil
	}
	if err := waitToken(r.Conn.Pub(ReceiverTopic(r.ID, TopicFrame), pkt), r.PubTimeout); err != nil {
		return err
	}
	if r.Stats == nil {
		return nil
	}
	stats, err := json.Marshal(r.Stats())
	if err != nil {
		return err
	}
	return waitToken(r.Conn.Pub(ReceiverTopic(r.ID, TopicStats), stats), r.PubTimeout)
}

// Run implements framework.Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	// auto reconnect only takes over after the first connection.
	for {
		err := r.Conn.Connect(r.PubTimeout)
		if err == nil {
			break
		}
		glog.Warningf("mqtt: connect error: %v", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.PubTimeout):
		}
	}
	<-ctx.Done()
	if r.Conn.Client.IsConnected() {
		waitToken(r.Conn.PubWith(ReceiverTopic(r.ID, TopicMeta), nil, 1, true), r.PubTimeout)
	}
	r.Conn.Close()
	return ctx.Err()
}

func (r *Registrar) announce() {
	r.Conn.PubWith(ReceiverTopic(r.ID, TopicMeta), r.metaJSON, 1, true)
}
