package model

import (
	"fmt"
	"strings"

	"whatsapp-telegram-bridge/internal/domain"
)

type OutboundKind string

const (
	OutText     OutboundKind = "text"
	OutPhoto    OutboundKind = "photo"
	OutVideo    OutboundKind = "video"
	OutAudio    OutboundKind = "audio"
	OutDocument OutboundKind = "document"
	OutLocation OutboundKind = "location"
	OutContact  OutboundKind = "contact"
	OutPoll     OutboundKind = "poll"
)

const ParseModeHTML = "HTML"

// OutboundMessage is one bot-platform message. ChatID stays empty until the
// delivery router assigns the destination.
type OutboundMessage struct {
	Kind   OutboundKind
	ChatID string

	Text                  string
	ParseMode             string
	DisableWebPagePreview bool

	MediaURL string
	Caption  string

	Latitude  float64
	Longitude float64

	PhoneNumber string
	FirstName   string

	Question string
	Options  []string
}

func NewTextMessage(text string) OutboundMessage {
	return OutboundMessage{Kind: OutText, Text: text}
}

func NewHTMLMessage(text string) OutboundMessage {
	return OutboundMessage{Kind: OutText, Text: text, ParseMode: ParseModeHTML}
}

func NewMediaMessage(kind OutboundKind, url, caption string) OutboundMessage {
	return OutboundMessage{Kind: kind, MediaURL: url, Caption: caption}
}

func NewLocationMessage(lat, lon float64) OutboundMessage {
	return OutboundMessage{Kind: OutLocation, Latitude: lat, Longitude: lon}
}

func NewContactMessage(phone, firstName string) OutboundMessage {
	return OutboundMessage{Kind: OutContact, PhoneNumber: phone, FirstName: firstName}
}

func NewPollMessage(question string, options []string) OutboundMessage {
	opts := make([]string, len(options))
	copy(opts, options)
	return OutboundMessage{Kind: OutPoll, Question: question, Options: opts}
}

// WithChatID returns a copy addressed to chatID.
func (m OutboundMessage) WithChatID(chatID string) OutboundMessage {
	m.ChatID = chatID
	return m
}

// Validate checks the message is one of the shapes the bot transport accepts.
func (m OutboundMessage) Validate() error {
	bad := func(reason string) error {
		return fmt.Errorf("%w: %s message %s", domain.ErrUnsupportedContent, m.Kind, reason)
	}
	switch m.Kind {
	case OutText:
		if strings.TrimSpace(m.Text) == "" {
			return bad("has empty text")
		}
	case OutPhoto, OutVideo, OutAudio, OutDocument:
		if m.MediaURL == "" {
			return bad("has no media url")
		}
	case OutLocation:
		if m.Latitude < -90 || m.Latitude > 90 || m.Longitude < -180 || m.Longitude > 180 {
			return bad("has out of range coordinates")
		}
	case OutContact:
		if m.PhoneNumber == "" || m.FirstName == "" {
			return bad("lacks phone or name")
		}
	case OutPoll:
		if m.Question == "" || len(m.Options) == 0 {
			return bad("lacks question or options")
		}
	default:
		return fmt.Errorf("%w: kind %q", domain.ErrUnsupportedContent, m.Kind)
	}
	return nil
}

// Batch is the ordered output of one transform: Primary first, then each
// Supplementary message in order.
type Batch struct {
	Primary       OutboundMessage
	Supplementary []OutboundMessage
}

func Single(m OutboundMessage) Batch { return Batch{Primary: m} }

func (b Batch) Len() int { return 1 + len(b.Supplementary) }

// Messages flattens the batch in delivery order.
func (b Batch) Messages() []OutboundMessage {
	out := make([]OutboundMessage, 0, b.Len())
	out = append(out, b.Primary)
	return append(out, b.Supplementary...)
}
