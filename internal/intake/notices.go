package intake

import (
	"sync"
	"time"
)

const maxNotices = 50

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message about something the session did.
type Notice struct {
	Seq     uint64      `json:"seq"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// noticeBoard keeps the most recent notices of a session.
type noticeBoard struct {
	mu      sync.Mutex
	seq     uint64
	notices []Notice
	now     func() time.Time
}

func (b *noticeBoard) post(level NoticeLevel, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.notices = append(b.notices, Notice{Seq: b.seq, Level: level, Message: msg, At: b.now()})
	if len(b.notices) > maxNotices {
		b.notices = append([]Notice(nil), b.notices[len(b.notices)-maxNotices:]...)
	}
}

// since returns the notices posted after seq, oldest first.
func (b *noticeBoard) since(seq uint64) []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []Notice{}
	for _, n := range b.notices {
		if n.Seq > seq {
			out = append(out, n)
		}
	}
	return out
}
