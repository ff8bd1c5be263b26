package dispatch

import (
	"context"

	"github.com/renewalwatch/backend/internal/model"
)

// Slack incoming-webhook payload: plain text fallback plus Block Kit blocks.
type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

type SlackSender struct {
	client      *Client
	frontendURL string
}

func NewSlackSender(client *Client, frontendURL string) *SlackSender {
	return &SlackSender{client: client, frontendURL: frontendURL}
}

func (s *SlackSender) Kind() model.ChannelKind {
	return model.ChannelSlack
}

func (s *SlackSender) Send(ctx context.Context, channel model.AlertChannel, msg Message) Result {
	return s.client.PostJSON(ctx, channel.WebhookURL, buildSlackPayload(msg.Render(s.frontendURL)), nil)
}

func buildSlackPayload(card Card) slackPayload {
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: card.Title}},
	}
	if card.Subtitle != "" {
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*" + card.Subtitle + "*"}})
	}

	// Slack allows at most 10 fields per section.
	for i := 0; i < len(card.Fields); i += 10 {
		end := i + 10
		if end > len(card.Fields) {
			end = len(card.Fields)
		}
		section := slackBlock{Type: "section"}
		for _, f := range card.Fields[i:end] {
			section.Fields = append(section.Fields, slackText{Type: "mrkdwn", Text: "*" + f.Label + "*\n" + f.Value})
		}
		blocks = append(blocks, section)
	}

	if card.Link != "" {
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []slackElement{{
				Type: "button",
				Text: slackText{Type: "plain_text", Text: card.Button},
				URL:  card.Link,
			}},
		})
	}

	return slackPayload{Text: card.Text(), Blocks: blocks}
}
