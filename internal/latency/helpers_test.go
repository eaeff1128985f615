package latency

import "time"

var testParticipants = []string{"alice", "bob"}

// conversationBuilder accumulates messages with monotonically increasing
// timestamps and indices.
type conversationBuilder struct {
	msgs []Message
	now  int64
}

func newConversation(start time.Time) *conversationBuilder {
	return &conversationBuilder{now: start.UnixMilli()}
}

func (b *conversationBuilder) add(sender string, after time.Duration) *conversationBuilder {
	b.now += after.Milliseconds()
	b.msgs = append(b.msgs, Message{
		Index:       len(b.msgs),
		Sender:      sender,
		TimestampMs: b.now,
		Content:     "msg",
	})
	return b
}

func (b *conversationBuilder) build() []Message {
	return b.msgs
}

// pairedConversation builds n alternating exchange pairs: alice opens, bob
// replies after bobReply, alice's next message follows after aliceReply.
func pairedConversation(start time.Time, pairs int, bobReply, aliceReply time.Duration) []Message {
	b := newConversation(start)
	for i := 0; i < pairs; i++ {
		if i == 0 {
			b.add("alice", 0)
		} else {
			b.add("alice", aliceReply)
		}
		b.add("bob", bobReply)
	}
	return b.build()
}

// dailyConversation builds one alice/bob exchange per day for the given
// number of days, each at noon UTC.
func dailyConversation(start time.Time, days int, bobReply time.Duration) []Message {
	b := newConversation(start)
	for i := 0; i < days; i++ {
		if i == 0 {
			b.add("alice", 0)
		} else {
			b.add("alice", 24*time.Hour-bobReply)
		}
		b.add("bob", bobReply)
	}
	return b.build()
}

func noonUTC() time.Time {
	return time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
}
