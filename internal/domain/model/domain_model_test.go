//go:build !integration

package model

import (
	"errors"
	"testing"

	"whatsapp-telegram-bridge/internal/domain"
)

// --- Account Model Tests ---

func TestNewAccount(t *testing.T) {
	t.Run("should create an account with defaults", func(t *testing.T) {
		acc, err := NewAccount("12345", "alice", "Alice")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if acc.ID == "" {
			t.Error("expected account ID to be non-empty")
		}
		if acc.Locale != LocaleEN {
			t.Errorf("expected locale en, got %s", acc.Locale)
		}
		if acc.Notifications != (NotificationPrefs{Incoming: true, Outgoing: true, State: true}) {
			t.Errorf("expected all notification flags on, got %+v", acc.Notifications)
		}
		if acc.IsBound() {
			t.Error("new account must not be bound")
		}
	})

	t.Run("should fill placeholder names", func(t *testing.T) {
		acc, err := NewAccount("77", "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if acc.UserName != "no_name_user_77" || acc.FirstName != "no_first_name_user_77" {
			t.Errorf("unexpected placeholders: %q %q", acc.UserName, acc.FirstName)
		}
	})

	t.Run("should fail with empty channel id", func(t *testing.T) {
		acc, err := NewAccount("  ", "alice", "Alice")
		if acc != nil {
			t.Error("expected nil account on error")
		}
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestAccountDestination(t *testing.T) {
	acc := &Account{ID: "a", ChannelID: "100"}
	if got := acc.Destination(); got != "100" {
		t.Errorf("expected own channel, got %s", got)
	}
	acc.RedirectTarget = "-100123"
	if got := acc.Destination(); got != "-100123" {
		t.Errorf("expected redirect target, got %s", got)
	}
}

func TestLocale(t *testing.T) {
	testCases := []struct {
		in      string
		ok      bool
		catalog Locale
	}{
		{"en", true, LocaleEN},
		{"RU", true, LocaleRU},
		{"kz", true, LocaleRU},
		{"de", false, LocaleEN},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			l, ok := ParseLocale(tc.in)
			if ok != tc.ok {
				t.Fatalf("ParseLocale(%q) ok=%v, want %v", tc.in, ok, tc.ok)
			}
			if !ok {
				l = Locale(tc.in)
			}
			if got := l.Catalog(); got != tc.catalog {
				t.Errorf("catalog for %q: got %s, want %s", tc.in, got, tc.catalog)
			}
		})
	}
}

// --- Outbound Model Tests ---

func TestOutboundValidate(t *testing.T) {
	valid := []OutboundMessage{
		NewTextMessage("hi"),
		NewMediaMessage(OutPhoto, "https://x/y.jpg", ""),
		NewLocationMessage(51.5, -0.12),
		NewContactMessage("+7700", "Bob"),
		NewPollMessage("Q?", []string{"A", "B"}),
	}
	for _, m := range valid {
		if err := m.Validate(); err != nil {
			t.Errorf("expected %s to be valid, got %v", m.Kind, err)
		}
	}

	invalid := []OutboundMessage{
		{Kind: "sticker"},
		NewTextMessage(" "),
		NewMediaMessage(OutVideo, "", "cap"),
		NewLocationMessage(91, 0),
		NewPollMessage("Q?", nil),
	}
	for _, m := range invalid {
		if err := m.Validate(); !errors.Is(err, domain.ErrUnsupportedContent) {
			t.Errorf("expected ErrUnsupportedContent for %+v, got %v", m, err)
		}
	}
}

func TestBatchMessagesOrder(t *testing.T) {
	b := Batch{
		Primary:       NewTextMessage("p"),
		Supplementary: []OutboundMessage{NewLocationMessage(1, 2), NewContactMessage("1", "x")},
	}
	msgs := b.Messages()
	if len(msgs) != 3 || b.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Kind != OutText || msgs[1].Kind != OutLocation || msgs[2].Kind != OutContact {
		t.Errorf("unexpected order: %v %v %v", msgs[0].Kind, msgs[1].Kind, msgs[2].Kind)
	}
}

func TestPollOptionsAreCopied(t *testing.T) {
	opts := []string{"A", "B"}
	m := NewPollMessage("Q", opts)
	opts[0] = "Z"
	if m.Options[0] != "A" {
		t.Errorf("poll options must not alias the input slice")
	}
}

// --- Webhook / Update Tests ---

func TestParseWebhookPayloadInstanceID(t *testing.T) {
	t.Run("numeric id", func(t *testing.T) {
		p, err := ParseWebhookPayload([]byte(`{"typeWebhook":"stateInstanceChanged","instanceData":{"idInstance":1101},"stateInstance":"authorized"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.InstanceData.IDInstance != 1101 {
			t.Errorf("expected 1101, got %d", p.InstanceData.IDInstance)
		}
	})
	t.Run("string id", func(t *testing.T) {
		p, err := ParseWebhookPayload([]byte(`{"typeWebhook":"x","instanceData":{"idInstance":"1102"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.InstanceData.IDInstance != 1102 {
			t.Errorf("expected 1102, got %d", p.InstanceData.IDInstance)
		}
	})
	t.Run("malformed body", func(t *testing.T) {
		if _, err := ParseWebhookPayload([]byte(`{`)); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestBotUpdateCommand(t *testing.T) {
	u := BotUpdate{Text: "/SetChat@MyBridgeBot  -100123 "}
	if !u.IsCommand() {
		t.Fatal("expected a command")
	}
	token, args := u.Command()
	if token != "/setchat" {
		t.Errorf("expected /setchat, got %s", token)
	}
	if len(args) != 1 || args[0] != "-100123" {
		t.Errorf("unexpected args: %v", args)
	}
	if (BotUpdate{Text: "hello"}).IsCommand() {
		t.Error("plain text must not be a command")
	}
}

func TestMaskChatID(t *testing.T) {
	cases := map[string]string{
		"79001234567@c.us": "*******4567@c.us",
		"120363043@g.us":   "*****3043@g.us",
		"1234@c.us":        "1234@c.us",
		"79001234567":      "*******4567",
		"":                 "",
	}
	for in, want := range cases {
		if got := MaskChatID(in); got != want {
			t.Errorf("MaskChatID(%q) = %q, want %q", in, got, want)
		}
	}
}
