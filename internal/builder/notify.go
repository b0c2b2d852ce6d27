package builder

import "sync"

// Notifier receives the transient messages the builder shows the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Inbox is a Notifier that queues notices until they are drained.
type Inbox struct {
	mu      sync.Mutex
	notices []Notice
}

func (in *Inbox) Success(msg string) { in.push(LevelSuccess, msg) }

func (in *Inbox) Error(msg string) { in.push(LevelError, msg) }

func (in *Inbox) push(l Level, msg string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.notices = append(in.notices, Notice{Level: l, Message: msg})
}

// Drain returns the queued notices oldest first and empties the inbox.
func (in *Inbox) Drain() []Notice {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.notices
	in.notices = nil
	return out
}
