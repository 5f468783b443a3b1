package devbackend

import (
	"sort"
	"sync"
	"time"

	"github.com/sudo-init-do/bazaar/internal/marketplace"
	"github.com/sudo-init-do/bazaar/internal/messaging"
	"github.com/sudo-init-do/bazaar/internal/user"
)

type account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	AvatarURL    string
	Disabled     bool
	CreatedAt    time.Time
}

func (a *account) user() user.User {
	return user.User{ID: a.ID, Name: a.Name, Email: a.Email, AvatarURL: a.AvatarURL, CreatedAt: a.CreatedAt}
}

func (a *account) profile() user.Profile {
	return user.Profile{ID: a.ID, Name: a.Name, AvatarURL: a.AvatarURL}
}

type object struct {
	ContentType string
	Data        []byte
}

// store is the whole backend state, kept in memory.
type store struct {
	mu sync.RWMutex

	accounts map[string]*account
	byEmail  map[string]string
	refresh  map[string]string // refresh token -> account id

	listings map[string]*marketplace.Listing
	orders   map[string]*marketplace.Order
	messages []messaging.Message
	objects  map[string]object
}

func newStore() *store {
	return &store{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		refresh:  make(map[string]string),
		listings: make(map[string]*marketplace.Listing),
		orders:   make(map[string]*marketplace.Order),
		objects:  make(map[string]object),
	}
}

// activeListings returns active listings newest first. Caller holds mu.
func (s *store) activeListings() []marketplace.Listing {
	out := make([]marketplace.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if l.Status == marketplace.ListingActive {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ordersOf returns orders uid is a party to, newest first. Caller holds mu.
func (s *store) ordersOf(uid string) []marketplace.Order {
	out := make([]marketplace.Order, 0)
	for _, o := range s.orders {
		if o.BuyerID == uid || o.SellerID == uid {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// between returns the messages exchanged by a and b, oldest first. Caller
// holds mu.
func (s *store) between(a, b string) []messaging.Message {
	var out []messaging.Message
	for _, m := range s.messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	return out
}

// conversations returns the latest message per counterpart of uid, newest
// first. Caller holds mu.
func (s *store) conversations(uid string) []messaging.Conversation {
	latest := map[string]messaging.Message{}
	for _, m := range s.messages {
		var other string
		switch uid {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		// messages are appended in time order, so later wins
		latest[other] = m
	}
	var out []messaging.Conversation
	for other, m := range latest {
		conv := messaging.Conversation{Message: m}
		if acc, ok := s.accounts[other]; ok {
			conv.User = acc.profile()
		} else {
			conv.User = user.Profile{ID: other}
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Message.CreatedAt.After(out[j].Message.CreatedAt)
	})
	return out
}
