package messaging

import "sort"

type ThreadMessage struct {
	Message
	Outgoing bool `json:"outgoing"`
}

// Thread orders msgs oldest first and marks the ones viewerID sent.
func Thread(msgs []Message, viewerID string) []ThreadMessage {
	out := make([]ThreadMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ThreadMessage{Message: m, Outgoing: m.SenderID == viewerID})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
