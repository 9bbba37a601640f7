package mqtt

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// ReceiverInfo describes a discovered receiver.
type ReceiverInfo struct {
	ID   string    `json:"id"`
	Meta msgs.Meta `json:"meta"`
}

// Monitor watches receivers on the broker.
type Monitor struct {
	Conn            *Conn
	DiscoverTimeout time.Duration
}

// NewMonitor creates a Monitor.
func NewMonitor(brokerURL string) (*Monitor, error) {
	conn, err := NewConnFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Monitor{Conn: conn, DiscoverTimeout: DefaultDiscoverTimeout}, nil
}

// Connect connects to the broker.
func (m *Monitor) Connect() error {
	return m.Conn.Connect(5 * time.Second)
}

// Close implements io.Closer.
func (m *Monitor) Close() error {
	return m.Conn.Close()
}

// Discover collects retained receiver announcements.
func (m *Monitor) Discover(ctx context.Context) ([]ReceiverInfo, error) {
	var lock sync.Mutex
	found := make(map[string]ReceiverInfo)
	sub := m.Conn.Sub(ReceiverTopic("+", TopicMeta), func(topic string, payload []byte) {
		info, ok := ParseMeta(topic, payload)
		lock.Lock()
		if ok {
			found[info.ID] = info
		} else if info.ID != "" {
			delete(found, info.ID)
		}
		lock.Unlock()
	})
	defer sub.Close()

	dur := m.DiscoverTimeout
	if dur <= 0 {
		dur = DefaultDiscoverTimeout
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(dur):
	}

	lock.Lock()
	defer lock.Unlock()
	res := make([]ReceiverInfo, 0, len(found))
	for _, info := range found {
		res = append(res, info)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// ParseMeta parses a meta message. An empty payload withdraws the receiver
// and ok is false.
func ParseMeta(topic string, payload []byte) (info ReceiverInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 2 || items[1] != TopicMeta {
		return
	}
	info.ID = items[0]
	if len(payload) == 0 {
		return
	}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("mqtt: invalid meta from %s: %v", info.ID, err)
		return
	}
	return info, true
}

// Watch subscribes frames and stats of a receiver. Frames are decoded with
// enc. Close the returned subscriptions to stop.
func (m *Monitor) Watch(id string, enc msgs.Encoding, onFrame func(*msgs.Frame), onStats func(json.RawMessage)) []*Subscription {
	frameSub := m.Conn.Sub(ReceiverTopic(id, TopicFrame), func(topic string, payload []byte) {
		var f msgs.Frame
		if err := enc.Unmarshal(payload, &f); err != nil {
			glog.Warningf("mqtt: invalid frame from %s: %v", id, err)
			return
		}
		onFrame(&f)
	})
	statsSub := m.Conn.Sub(ReceiverTopic(id, TopicStats), func(topic string, payload []byte) {
		if onStats != nil {
			onStats(json.RawMessage(append([]byte(nil), payload...)))
		}
	})
	return []*Subscription{frameSub, statsSub}
}
