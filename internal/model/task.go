package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Important bool      `json:"important"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTask assigns a fresh identity and creation time. The time is cut to
// microseconds, the finest precision every backend keeps.
func NewTask(name string, important bool) Task {
	return Task{
		ID:        uuid.NewString(),
		Name:      name,
		Important: important,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (t Task) CreatedDateFormatted() string {
	return t.CreatedAt.Local().Format("Jan 2, 2006 3:04:05 PM")
}
