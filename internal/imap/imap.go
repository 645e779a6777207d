package imap

import (
	"time"

	"github.com/emersion/go-imap"
)

// Client is the mailbox access the devotion email source needs
type Client interface {
	Connect(server string) error
	Login(user, password string) error
	SelectMailbox(name string) error
	ListUnseenUIDs(since time.Duration, senders []string) ([]uint32, error)
	FetchMessage(uid uint32) (*imap.Message, error)
	MarkSeen(uid uint32) error
	Close() error
}
