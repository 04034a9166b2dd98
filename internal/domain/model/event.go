package model

type EventKind string

const (
	EventIncoming       EventKind = "incoming"
	EventOutgoingStatus EventKind = "outgoing_status"
	EventInstanceState  EventKind = "instance_state"
	EventUnsupported    EventKind = "unsupported"
)

type ContentKind string

const (
	ContentText         ContentKind = "text"
	ContentExtendedText ContentKind = "extended_text"
	ContentImage        ContentKind = "image"
	ContentVideo        ContentKind = "video"
	ContentAudio        ContentKind = "audio"
	ContentDocument     ContentKind = "document"
	ContentLocation     ContentKind = "location"
	ContentContact      ContentKind = "contact"
	ContentPoll         ContentKind = "poll"
	ContentUnsupported  ContentKind = "unsupported"
)

// IsMedia reports content forwarded as a file with caption.
func (c ContentKind) IsMedia() bool {
	switch c {
	case ContentImage, ContentVideo, ContentAudio, ContentDocument:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
	StatusNoAccount DeliveryStatus = "no_account"
)

type InstanceState string

const (
	StateAuthorized    InstanceState = "authorized"
	StateNotAuthorized InstanceState = "notAuthorized"
	StateBlocked       InstanceState = "blocked"
	StateStarting      InstanceState = "starting"
)

// Sender describes who produced an incoming message.
type Sender struct {
	Name     string
	Number   string
	ChatID   string
	ChatName string
	IsGroup  bool
}

type IncomingMessage struct {
	Content ContentKind
	RawType string

	Text string

	MediaURL string
	Caption  string
	FileName string

	Latitude  float64
	Longitude float64

	ContactName string
	VCard       string

	PollName    string
	PollOptions []string
}

type StatusUpdate struct {
	Status DeliveryStatus
	ChatID string
}

type StateChange struct {
	State InstanceState
}

// InboundEvent is one classified gateway delivery. Exactly one of Message,
// Status or State is set for the matching Kind; unsupported events carry
// only RawKind.
type InboundEvent struct {
	Kind       EventKind
	RawKind    string
	InstanceID int64
	MessageID  string
	Sender     Sender

	Message *IncomingMessage
	Status  *StatusUpdate
	State   *StateChange
}
