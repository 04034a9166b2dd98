package usecase

import (
	"strings"

	"whatsapp-telegram-bridge/internal/domain/model"
)

var contentKinds = map[string]model.ContentKind{
	"textMessage":         model.ContentText,
	"extendedTextMessage": model.ContentExtendedText,
	"imageMessage":        model.ContentImage,
	"videoMessage":        model.ContentVideo,
	"audioMessage":        model.ContentAudio,
	"documentMessage":     model.ContentDocument,
	"locationMessage":     model.ContentLocation,
	"contactMessage":      model.ContentContact,
	"pollMessage":         model.ContentPoll,
}

var deliveryStatuses = map[string]model.DeliveryStatus{
	"sent":      model.StatusSent,
	"delivered": model.StatusDelivered,
	"read":      model.StatusRead,
	"failed":    model.StatusFailed,
	"noAccount": model.StatusNoAccount,
}

// Classify maps a raw gateway delivery to exactly one event kind. It never
// fails: anything it does not recognize becomes EventUnsupported with the raw
// typeWebhook kept for diagnostics.
func Classify(p *model.WebhookPayload) model.InboundEvent {
	if p == nil {
		return model.InboundEvent{Kind: model.EventUnsupported}
	}
	ev := model.InboundEvent{
		RawKind:    p.TypeWebhook,
		InstanceID: int64(p.InstanceData.IDInstance),
		MessageID:  p.IDMessage,
	}

	switch p.TypeWebhook {
	case "incomingMessageReceived":
		ev.Kind = model.EventIncoming
		ev.Sender = classifySender(p.SenderData)
		ev.Message = classifyMessage(p.MessageData)
	case "outgoingMessageStatus":
		ev.Kind = model.EventOutgoingStatus
		status, ok := deliveryStatuses[p.Status]
		if !ok {
			status = model.DeliveryStatus(p.Status)
		}
		ev.Status = &model.StatusUpdate{Status: status, ChatID: p.ChatID}
	case "stateInstanceChanged":
		ev.Kind = model.EventInstanceState
		ev.State = &model.StateChange{State: model.InstanceState(p.StateInstance)}
	default:
		ev.Kind = model.EventUnsupported
	}
	return ev
}

func classifySender(sd *model.SenderData) model.Sender {
	if sd == nil {
		return model.Sender{}
	}
	name := sd.SenderName
	if name == "" {
		name = sd.SenderContactName
	}
	return model.Sender{
		Name:     name,
		Number:   sd.Sender,
		ChatID:   sd.ChatID,
		ChatName: sd.ChatName,
		IsGroup:  strings.HasSuffix(sd.ChatID, "@g.us"),
	}
}

func classifyMessage(md *model.MessageData) *model.IncomingMessage {
	if md == nil {
		return &model.IncomingMessage{Content: model.ContentUnsupported}
	}
	msg := &model.IncomingMessage{RawType: md.TypeMessage}
	kind, ok := contentKinds[md.TypeMessage]
	if !ok {
		msg.Content = model.ContentUnsupported
		return msg
	}

	// a known typeMessage without its data block degrades to unsupported
	switch kind {
	case model.ContentText:
		if md.TextMessageData == nil {
			break
		}
		msg.Content, msg.Text = kind, md.TextMessageData.TextMessage
	case model.ContentExtendedText:
		if md.ExtendedTextMessageData == nil {
			break
		}
		msg.Content, msg.Text = kind, md.ExtendedTextMessageData.Text
	case model.ContentImage, model.ContentVideo, model.ContentAudio, model.ContentDocument:
		if md.FileMessageData == nil {
			break
		}
		msg.Content = kind
		msg.MediaURL = md.FileMessageData.DownloadURL
		msg.Caption = md.FileMessageData.Caption
		msg.FileName = md.FileMessageData.FileName
	case model.ContentLocation:
		if md.LocationMessageData == nil {
			break
		}
		msg.Content = kind
		msg.Latitude = md.LocationMessageData.Latitude
		msg.Longitude = md.LocationMessageData.Longitude
	case model.ContentContact:
		if md.ContactMessageData == nil {
			break
		}
		msg.Content = kind
		msg.ContactName = md.ContactMessageData.DisplayName
		msg.VCard = md.ContactMessageData.VCard
	case model.ContentPoll:
		if md.PollMessageData == nil {
			break
		}
		msg.Content = kind
		msg.PollName = md.PollMessageData.Name
		msg.PollOptions = make([]string, 0, len(md.PollMessageData.Options))
		for _, o := range md.PollMessageData.Options {
			msg.PollOptions = append(msg.PollOptions, o.OptionName)
		}
	}
	if msg.Content == "" {
		msg.Content = model.ContentUnsupported
	}
	return msg
}
