package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// WebhookPayload is the raw JSON body the WhatsApp gateway posts.
type WebhookPayload struct {
	TypeWebhook   string       `json:"typeWebhook"`
	InstanceData  InstanceData `json:"instanceData"`
	Timestamp     int64        `json:"timestamp"`
	IDMessage     string       `json:"idMessage"`
	SenderData    *SenderData  `json:"senderData,omitempty"`
	MessageData   *MessageData `json:"messageData,omitempty"`
	Status        string       `json:"status,omitempty"`
	ChatID        string       `json:"chatId,omitempty"`
	StateInstance string       `json:"stateInstance,omitempty"`
}

type InstanceData struct {
	IDInstance   FlexInt64 `json:"idInstance"`
	Wid          string    `json:"wid"`
	TypeInstance string    `json:"typeInstance"`
}

type SenderData struct {
	ChatID            string `json:"chatId"`
	ChatName          string `json:"chatName"`
	Sender            string `json:"sender"`
	SenderName        string `json:"senderName"`
	SenderContactName string `json:"senderContactName"`
}

type MessageData struct {
	TypeMessage             string                   `json:"typeMessage"`
	TextMessageData         *TextMessageData         `json:"textMessageData,omitempty"`
	ExtendedTextMessageData *ExtendedTextMessageData `json:"extendedTextMessageData,omitempty"`
	FileMessageData         *FileMessageData         `json:"fileMessageData,omitempty"`
	LocationMessageData     *LocationMessageData     `json:"locationMessageData,omitempty"`
	ContactMessageData      *ContactMessageData      `json:"contactMessageData,omitempty"`
	PollMessageData         *PollMessageData         `json:"pollMessageData,omitempty"`
}

type TextMessageData struct {
	TextMessage string `json:"textMessage"`
}

type ExtendedTextMessageData struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

type FileMessageData struct {
	DownloadURL string `json:"downloadUrl"`
	Caption     string `json:"caption"`
	FileName    string `json:"fileName"`
	MimeType    string `json:"mimeType"`
}

type LocationMessageData struct {
	NameLocation string  `json:"nameLocation"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type ContactMessageData struct {
	DisplayName string `json:"displayName"`
	VCard       string `json:"vcard"`
}

type PollMessageData struct {
	Name            string       `json:"name"`
	Options         []PollOption `json:"options"`
	MultipleAnswers bool         `json:"multipleAnswers"`
}

type PollOption struct {
	OptionName string `json:"optionName"`
}

// FlexInt64 decodes an instance id sent either as a JSON number or a string.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexInt64(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("idInstance: %w", err)
	}
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("idInstance: %w", err)
	}
	*f = FlexInt64(n)
	return nil
}

// ParseWebhookPayload decodes a gateway webhook body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &p, nil
}
