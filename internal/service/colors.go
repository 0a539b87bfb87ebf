package service

import "sync"

var palette = []string{"#FEF08A", "#BBF7D0", "#BFDBFE", "#DDD6FE", "#FECACA", "#FED7AA", "#A5F3FC", "#FBCFE8"}

// ColorTable hands out fallback colors per area name in first-seen order.
// Entries live until Reset; the calendar service resets it on process start
// only, so an area keeps its color for the lifetime of the server.
type ColorTable struct {
	mu       sync.Mutex
	assigned map[string]string
}

func NewColorTable() *ColorTable {
	return &ColorTable{assigned: make(map[string]string)}
}

// Color returns preferred when set, otherwise the area's fallback color.
func (t *ColorTable) Color(area, preferred string) string {
	if preferred != "" {
		return preferred
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.assigned[area]; ok {
		return c
	}
	c := palette[len(t.assigned)%len(palette)]
	t.assigned[area] = c
	return c
}

func (t *ColorTable) Reset() {
	t.mu.Lock()
	t.assigned = make(map[string]string)
	t.mu.Unlock()
}
