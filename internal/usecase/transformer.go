package usecase

import (
	"html"
	"strings"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/infra/i18n"
)

const headerSeparator = "⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭ ⸭"

// eventTransformer renders one event kind. Implementations are pure: the
// only outside input is the owning account, and only state changes read it.
type eventTransformer interface {
	transform(ev model.InboundEvent, l model.Locale, owner *model.Account) model.Batch
}

// Transformer dispatches to the renderer registered for the event kind.
type Transformer struct {
	table    map[model.EventKind]eventTransformer
	fallback eventTransformer
}

func NewTransformer(cat *i18n.Catalog) *Transformer {
	return &Transformer{
		table: map[model.EventKind]eventTransformer{
			model.EventIncoming:       incomingTransformer{cat: cat},
			model.EventOutgoingStatus: statusTransformer{cat: cat},
			model.EventInstanceState:  stateTransformer{cat: cat},
		},
		fallback: unsupportedTransformer{cat: cat},
	}
}

// Transform turns ev into one primary message plus ordered supplementary
// messages. It never fails; malformed sub-payloads degrade to text.
// Destinations are left empty.
func (t *Transformer) Transform(ev model.InboundEvent, l model.Locale, owner *model.Account) model.Batch {
	if tr, ok := t.table[ev.Kind]; ok {
		return tr.transform(ev, l, owner)
	}
	return t.fallback.transform(ev, l, owner)
}

// ---- incoming messages ----

type incomingTransformer struct{ cat *i18n.Catalog }

var mediaKinds = map[model.ContentKind]model.OutboundKind{
	model.ContentImage:    model.OutPhoto,
	model.ContentVideo:    model.OutVideo,
	model.ContentAudio:    model.OutAudio,
	model.ContentDocument: model.OutDocument,
}

func (t incomingTransformer) transform(ev model.InboundEvent, l model.Locale, _ *model.Account) model.Batch {
	msg := ev.Message
	if msg == nil {
		msg = &model.IncomingMessage{Content: model.ContentUnsupported}
	}
	header := t.header(ev, l)

	switch msg.Content {
	case model.ContentText, model.ContentExtendedText:
		return model.Single(model.NewTextMessage(header + msg.Text))

	case model.ContentImage, model.ContentVideo, model.ContentAudio, model.ContentDocument:
		return model.Single(model.NewMediaMessage(mediaKinds[msg.Content], msg.MediaURL, header+msg.Caption))

	case model.ContentLocation:
		return model.Batch{
			Primary:       model.NewTextMessage(header + t.cat.T(l, "placeholder_location")),
			Supplementary: []model.OutboundMessage{model.NewLocationMessage(msg.Latitude, msg.Longitude)},
		}

	case model.ContentContact:
		phone, ok := ExtractPhoneNumber(msg.VCard)
		if !ok {
			phone = t.cat.T(l, "number_not_found")
		}
		name := msg.ContactName
		if name == "" {
			name = t.cat.T(l, "unknown")
		}
		return model.Batch{
			Primary:       model.NewTextMessage(header + t.cat.T(l, "placeholder_contact")),
			Supplementary: []model.OutboundMessage{model.NewContactMessage(phone, name)},
		}

	case model.ContentPoll:
		return model.Batch{
			Primary:       model.NewTextMessage(header + t.cat.T(l, "placeholder_poll")),
			Supplementary: []model.OutboundMessage{model.NewPollMessage(msg.PollName, msg.PollOptions)},
		}

	default:
		label := msg.RawType
		if label == "" {
			label = string(model.ContentUnsupported)
		}
		text := html.EscapeString(header) + t.cat.T(l, "unsupported_content", html.EscapeString(label))
		return model.Single(model.NewHTMLMessage(text))
	}
}

func (t incomingTransformer) header(ev model.InboundEvent, l model.Locale) string {
	var b strings.Builder
	b.WriteString(t.cat.T(l, "header_title"))
	b.WriteString("\n\n")

	if s := ev.Sender; s != (model.Sender{}) {
		name := firstNonEmpty(s.Name, s.ChatName, t.cat.T(l, "unknown"))
		number := firstNonEmpty(s.Number, s.ChatID, t.cat.T(l, "unknown"))
		b.WriteString(t.cat.T(l, "header_sender", name))
		b.WriteString("\n")
		b.WriteString(t.cat.T(l, "header_number", number))
		b.WriteString("\n")
		if s.IsGroup {
			b.WriteString(t.cat.T(l, "header_group", firstNonEmpty(s.ChatName, t.cat.T(l, "group_chat"))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(t.cat.T(l, "header_recipient", ev.InstanceID))
	}

	b.WriteString("\n")
	b.WriteString(headerSeparator)
	b.WriteString("\n\n")
	return b.String()
}

// ExtractPhoneNumber finds the TEL line of a vCard and keeps the digits after
// its first colon, plus a leading '+'. ok is false when nothing usable is found.
func ExtractPhoneNumber(vcard string) (string, bool) {
	if strings.TrimSpace(vcard) == "" {
		return "", false
	}
	var telLine string
	for _, line := range strings.Split(vcard, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "TEL") {
			telLine = line
			break
		}
	}
	if telLine == "" {
		return "", false
	}
	_, value, found := strings.Cut(telLine, ":")
	if !found {
		return "", false
	}

	var out strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= '0' && r <= '9':
			out.WriteRune(r)
		case r == '+' && out.Len() == 0:
			out.WriteRune(r)
		}
	}
	phone := out.String()
	if phone == "" || phone == "+" {
		return "", false
	}
	return phone, true
}

// ---- outgoing statuses ----

type statusTransformer struct{ cat *i18n.Catalog }

func (t statusTransformer) transform(ev model.InboundEvent, l model.Locale, _ *model.Account) model.Batch {
	st := ev.Status
	if st == nil {
		st = &model.StatusUpdate{}
	}
	if st.Status == model.StatusNoAccount {
		m := model.NewHTMLMessage(t.cat.T(l, "status_no_account",
			html.EscapeString(ev.MessageID), html.EscapeString(st.ChatID)))
		m.DisableWebPagePreview = true
		return model.Single(m)
	}

	word := string(st.Status)
	if key := "status_" + word; word != "" && t.cat.Has(l, key) {
		word = t.cat.T(l, key)
	}
	return model.Single(model.NewTextMessage(t.cat.T(l, "status_text_line", word, ev.MessageID)))
}

// ---- instance state ----

type stateTransformer struct{ cat *i18n.Catalog }

func (t stateTransformer) transform(ev model.InboundEvent, l model.Locale, owner *model.Account) model.Batch {
	if !owner.IsBound() {
		return model.Single(model.NewHTMLMessage(t.cat.T(l, "state_user_not_found", ev.InstanceID)))
	}

	var state model.InstanceState
	if ev.State != nil {
		state = ev.State.State
	}
	var text string
	switch state {
	case model.StateAuthorized:
		text = t.cat.T(l, "state_authorized")
	case model.StateNotAuthorized:
		text = t.cat.T(l, "state_not_authorized", ev.InstanceID, owner.Binding.Token)
	case model.StateBlocked:
		text = t.cat.T(l, "state_blocked")
	case model.StateStarting:
		text = t.cat.T(l, "state_starting")
	default:
		text = html.EscapeString(string(state))
	}
	return model.Single(model.NewHTMLMessage(t.cat.T(l, "state_header", ev.InstanceID, text)))
}

// ---- anything else ----

type unsupportedTransformer struct{ cat *i18n.Catalog }

func (t unsupportedTransformer) transform(ev model.InboundEvent, l model.Locale, _ *model.Account) model.Batch {
	label := ev.RawKind
	if label == "" {
		label = string(model.EventUnsupported)
	}
	return model.Single(model.NewHTMLMessage(t.cat.T(l, "unsupported_content", html.EscapeString(label))))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
