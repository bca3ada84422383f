package alerts

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultMessage = "An error occurred. Please try again."

type Status string

const (
	StatusDanger  Status = "danger"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	RaisedAt  time.Time `json:"raisedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Channel holds the single visible notification of a session. A newer alert
// replaces the current one; an alert disappears once its TTL has elapsed.
type Channel struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current *Alert
}

func NewChannel(ttl time.Duration) *Channel {
	return &Channel{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (c *Channel) WithClock(now func() time.Time) *Channel {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

func (c *Channel) Raise(message string, status Status) Alert {
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultMessage
	}
	if status == "" {
		status = StatusDanger
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	alert := Alert{
		ID:        uuid.NewString(),
		Message:   message,
		Status:    status,
		RaisedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.current = &alert
	return alert
}

func (c *Channel) Current() (Alert, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Alert{}, false
	}
	if c.ttl > 0 && !c.now().Before(c.current.ExpiresAt) {
		c.current = nil
		return Alert{}, false
	}
	return *c.current, true
}

func (c *Channel) Dismiss() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
