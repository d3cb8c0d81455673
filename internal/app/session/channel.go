package session

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync"
)

// Group is a named conversation. The name is its identity.
type Group struct {
	Name string `json:"name"`
}

// Message is one entry of a group's history, in arrival order.
type Message struct {
	// ID is the server-assigned id; empty while Pending.
	ID string `json:"id,omitempty"`

	// TempID is the local id of a message this client sent.
	TempID string `json:"tempId,omitempty"`

	Group      string    `json:"group"`
	SenderID   string    `json:"senderId"`
	Body       string    `json:"body"`
	Pending    bool      `json:"pending,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// channel holds the known groups and the selected one.
type channel struct {
	order    []string
	known    map[string]struct{}
	selected string
}

// addGroup appends name unless it is already known.
func (c *channel) addGroup(name string) bool {
	if _, ok := c.known[name]; ok {
		return false
	}
	if c.known == nil {
		c.known = make(map[string]struct{})
	}
	c.known[name] = struct{}{}
	c.order = append(c.order, name)
	return true
}

func (c *channel) has(name string) bool {
	_, ok := c.known[name]
	return ok
}

func (c *channel) groups() []Group {
	out := make([]Group, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, Group{Name: name})
	}
	return out
}

// selectGroup makes name the active group and reports whether it changed.
func (c *channel) selectGroup(name string) bool {
	if c.selected == name {
		return false
	}
	c.selected = name
	return true
}

func (c *channel) reset() {
	*c = channel{}
}

// history is the append-only message sequence of one group.
type history struct {
	mu       sync.RWMutex
	messages []Message
	byID     map[string]int
	byTempID map[string]int
}

func newHistory() *history {
	return &history{
		byID:     make(map[string]int),
		byTempID: make(map[string]int),
	}
}

// add appends m. A message echoing one of our TempIDs confirms the pending entry
// in place; a message whose ID is already present is dropped.
func (h *history) add(m Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m.TempID != "" && !m.Pending {
		if i, ok := h.byTempID[m.TempID]; ok {
			delete(h.byTempID, m.TempID)
			confirmed := h.messages[i]
			confirmed.Pending = false
			if m.ID != "" {
				confirmed.ID = m.ID
				h.byID[m.ID] = i
			}
			h.messages[i] = confirmed
			return true
		}
	}

	if m.ID != "" {
		if _, dup := h.byID[m.ID]; dup {
			return false
		}
		h.byID[m.ID] = len(h.messages)
	}
	if m.Pending && m.TempID != "" {
		h.byTempID[m.TempID] = len(h.messages)
	}

	h.messages = append(h.messages, m)
	return true
}

func (h *history) snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// histories maps group name to its history. It is read by view callers without
// the session lock.
type histories struct {
	m *xsync.MapOf[string, *history]
}

func newHistories() histories {
	return histories{m: xsync.NewMapOf[*history]()}
}

// of returns the history of group, creating it on first use. The stored
// pointer is the one returned, so nothing is appended to a discarded history.
func (hs histories) of(group string) *history {
	if h, ok := hs.m.Load(group); ok {
		return h
	}
	h, _ := hs.m.LoadOrStore(group, newHistory())
	return h
}

func (hs histories) messages(group string) []Message {
	h, ok := hs.m.Load(group)
	if !ok {
		return []Message{}
	}
	return h.snapshot()
}

func (hs histories) clear() {
	hs.m.Range(func(key string, _ *history) bool {
		hs.m.Delete(key)
		return true
	})
}
