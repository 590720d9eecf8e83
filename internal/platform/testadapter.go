package platform

import "sync"

// TestAdapter is an in-memory Adapter used by pipeline tests to exercise the
// controller end-to-end without a real chat platform.
type TestAdapter struct {
	mu      sync.Mutex
	Sent    []sentReply
	InVoice map[string]bool
	Spoken  []string
}

type sentReply struct {
	ChannelID string
	Reply     Reply
}

// NewTestAdapter returns a ready-to-use TestAdapter.
func NewTestAdapter() *TestAdapter {
	return &TestAdapter{InVoice: map[string]bool{}}
}

func (a *TestAdapter) Send(channelID string, reply Reply) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Sent = append(a.Sent, sentReply{ChannelID: channelID, Reply: reply})
	return nil
}

func (a *TestAdapter) IsUserInVoiceChannel(userID, channelID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.InVoice[userID+"/"+channelID]
}

func (a *TestAdapter) Speak(channelID string, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Spoken = append(a.Spoken, text)
	return nil
}

// SentCount reports how many replies have been sent so far.
func (a *TestAdapter) SentCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Sent)
}

// LastReply returns the most recently sent reply, or the zero value if none.
func (a *TestAdapter) LastReply() Reply {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Sent) == 0 {
		return Reply{}
	}
	return a.Sent[len(a.Sent)-1].Reply
}
