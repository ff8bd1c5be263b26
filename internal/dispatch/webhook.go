package dispatch

import (
	"context"

	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/pkg/currency"
	"github.com/renewalwatch/backend/pkg/datetime"
)

// webhookPayload is the flat JSON body for generic webhooks.
type webhookPayload struct {
	Event        string                  `json:"event"`
	TenantID     string                  `json:"tenant_id"`
	RuleType     model.RuleType          `json:"rule_type"`
	DueDate      string                  `json:"due_date"`
	Timezone     string                  `json:"timezone"`
	Title        string                  `json:"title"`
	Subscription *webhookSubscription    `json:"subscription,omitempty"`
	Amount       string                  `json:"amount,omitempty"`
	Gaps         []webhookGap            `json:"gaps,omitempty"`
	Summary      *model.MonthlyAggregate `json:"summary,omitempty"`
	Link         string                  `json:"link,omitempty"`
}

type webhookSubscription struct {
	ID              string  `json:"id"`
	VendorName      string  `json:"vendor_name"`
	ServiceName     string  `json:"service_name"`
	NextRenewalDate string  `json:"next_renewal_date"`
	BillingCycle    string  `json:"billing_cycle"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	Owner           *string `json:"owner"`
	Department      *string `json:"department"`
}

type webhookGap struct {
	SubscriptionID string   `json:"subscription_id"`
	Name           string   `json:"name"`
	Missing        []string `json:"missing"`
}

type WebhookSender struct {
	client      *Client
	frontendURL string
}

func NewWebhookSender(client *Client, frontendURL string) *WebhookSender {
	return &WebhookSender{client: client, frontendURL: frontendURL}
}

func (s *WebhookSender) Kind() model.ChannelKind {
	return model.ChannelWebhook
}

func (s *WebhookSender) Send(ctx context.Context, channel model.AlertChannel, msg Message) Result {
	headers := map[string]string{
		"X-Alert-Tenant-ID":  msg.Candidate.TenantID.String(),
		"X-Alert-Channel-ID": channel.ID.String(),
	}
	return s.client.PostJSON(ctx, channel.WebhookURL, buildWebhookPayload(msg, s.frontendURL), headers)
}

func buildWebhookPayload(msg Message, frontendURL string) webhookPayload {
	c := msg.Candidate
	card := msg.Render(frontendURL)

	p := webhookPayload{
		Event:    "subscription.alert",
		TenantID: c.TenantID.String(),
		RuleType: c.RuleType,
		DueDate:  c.DueDate.Format(datetime.DateFormat),
		Timezone: msg.location().String(),
		Title:    card.Title,
		Summary:  c.Summary,
		Link:     card.Link,
	}

	if sub := c.Subscription; sub != nil {
		p.Subscription = &webhookSubscription{
			ID:              sub.ID.String(),
			VendorName:      sub.VendorName,
			ServiceName:     sub.ServiceName,
			NextRenewalDate: sub.NextRenewalDate.UTC().Format(datetime.DateFormat),
			BillingCycle:    string(sub.BillingCycle),
			Amount:          sub.Amount.String(),
			Currency:        sub.Currency,
			Owner:           sub.OwnerName,
			Department:      sub.DepartmentName,
		}
		p.Amount = currency.NewMoney(sub.Amount, sub.Currency).Display()
	}

	for _, g := range c.Gaps {
		p.Gaps = append(p.Gaps, webhookGap{
			SubscriptionID: g.ID.String(),
			Name:           g.DisplayName(),
			Missing:        g.MissingFields(),
		})
	}
	return p
}
