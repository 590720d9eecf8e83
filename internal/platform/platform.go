// Package platform defines the narrow, platform-neutral surface the
// pipeline controller consumes. No concrete chat-platform adapter ships
// here (spec §1 Non-goals); internal/platform/testadapter.go provides an
// in-memory adapter used by pipeline tests.
package platform

import "time"

// Attachment is an opaque inbound blob with a content type.
type Attachment struct {
	ContentType string
	Data        []byte
	Filename    string
}

// Message is one inbound unit from a platform adapter. Immutable.
type Message struct {
	Platform    string
	UserID      string
	ChannelID   string
	MessageID   string
	Content     string
	Attachments []Attachment
	Timestamp   time.Time
}

// Reply is the outbound response handed back to the adapter.
type Reply struct {
	Text   string
	Chunks []string
}

// Adapter is the platform-neutral interface the controller consumes. A
// concrete implementation (Discord gateway, web UI, voice) lives outside
// this module.
type Adapter interface {
	Send(channelID string, reply Reply) error
	IsUserInVoiceChannel(userID, channelID string) bool
	Speak(channelID string, text string) error
}
