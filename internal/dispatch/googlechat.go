package dispatch

import (
	"context"

	"github.com/renewalwatch/backend/internal/model"
)

// Google Chat cards v1 payload.
type chatPayload struct {
	Cards []chatCard `json:"cards"`
}

type chatCard struct {
	Header   chatHeader    `json:"header"`
	Sections []chatSection `json:"sections"`
}

type chatHeader struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

type chatSection struct {
	Widgets []chatWidget `json:"widgets"`
}

type chatWidget struct {
	KeyValue *chatKeyValue `json:"keyValue,omitempty"`
	Buttons  []chatButton  `json:"buttons,omitempty"`
}

type chatKeyValue struct {
	TopLabel string `json:"topLabel"`
	Content  string `json:"content"`
}

type chatButton struct {
	TextButton chatTextButton `json:"textButton"`
}

type chatTextButton struct {
	Text    string      `json:"text"`
	OnClick chatOnClick `json:"onClick"`
}

type chatOnClick struct {
	OpenLink chatLink `json:"openLink"`
}

type chatLink struct {
	URL string `json:"url"`
}

type GoogleChatSender struct {
	client      *Client
	frontendURL string
}

func NewGoogleChatSender(client *Client, frontendURL string) *GoogleChatSender {
	return &GoogleChatSender{client: client, frontendURL: frontendURL}
}

func (s *GoogleChatSender) Kind() model.ChannelKind {
	return model.ChannelGoogleChat
}

func (s *GoogleChatSender) Send(ctx context.Context, channel model.AlertChannel, msg Message) Result {
	return s.client.PostJSON(ctx, channel.WebhookURL, buildChatPayload(msg.Render(s.frontendURL)), nil)
}

func buildChatPayload(card Card) chatPayload {
	var widgets []chatWidget
	for _, f := range card.Fields {
		widgets = append(widgets, chatWidget{KeyValue: &chatKeyValue{TopLabel: f.Label, Content: f.Value}})
	}

	sections := []chatSection{}
	if len(widgets) > 0 {
		sections = append(sections, chatSection{Widgets: widgets})
	}
	if card.Link != "" {
		sections = append(sections, chatSection{Widgets: []chatWidget{{
			Buttons: []chatButton{{TextButton: chatTextButton{
				Text:    card.Button,
				OnClick: chatOnClick{OpenLink: chatLink{URL: card.Link}},
			}}},
		}}})
	}

	return chatPayload{Cards: []chatCard{{
		Header:   chatHeader{Title: card.Title, Subtitle: card.Subtitle},
		Sections: sections,
	}}}
}
