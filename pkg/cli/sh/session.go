package sh

import (
	"encoding/json"
	"sync"

	"github.com/robotalks/cpudbg/pkg/report/mqtt"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

// Session follows one receiver.
type Session struct {
	Info mqtt.ReceiverInfo
	// OnFrame is called for every frame received, may be nil.
	OnFrame func(*msgs.Frame)

	historySize int
	subs        []*mqtt.Subscription

	lock    sync.RWMutex
	history []*msgs.Frame
	stats   json.RawMessage
}

// NewSession creates a Session keeping historySize frames.
func NewSession(info mqtt.ReceiverInfo, historySize int) *Session {
	if historySize <= 0 {
		historySize = 1
	}
	return &Session{Info: info, historySize: historySize}
}

// AddFrame records a frame.
func (s *Session) AddFrame(f *msgs.Frame) {
	s.lock.Lock()
	s.history = append(s.history, f)
	if over := len(s.history) - s.historySize; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	onFrame := s.OnFrame
	s.lock.Unlock()
	if onFrame != nil {
		onFrame(f)
	}
}

// SetStats records the latest stats.
func (s *Session) SetStats(stats json.RawMessage) {
	s.lock.Lock()
	s.stats = stats
	s.lock.Unlock()
}

// SetOnFrame replaces OnFrame.
func (s *Session) SetOnFrame(fn func(*msgs.Frame)) {
	s.lock.Lock()
	s.OnFrame = fn
	s.lock.Unlock()
}

// Last returns the latest frame, nil if none.
func (s *Session) Last() *msgs.Frame {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	return s.history[len(s.history)-1]
}

// History returns up to count latest frames, oldest first.
func (s *Session) History(count int) []*msgs.Frame {
	s.lock.RLock()
	defer s.lock.RUnlock()
	start := len(s.history) - count
	if count <= 0 || start < 0 {
		start = 0
	}
	return append([]*msgs.Frame(nil), s.history[start:]...)
}

// Stats returns the latest stats, nil if none.
func (s *Session) Stats() json.RawMessage {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.stats
}

// Close stops following.
func (s *Session) Close() error {
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
	return nil
}
