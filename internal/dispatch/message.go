package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/pkg/currency"
	"github.com/renewalwatch/backend/pkg/datetime"
)

const (
	unassigned = "Unassigned"
	// maxGapLines limits how many subscriptions a data-quality card lists.
	maxGapLines = 10
)

// Message is everything a sender needs to render one alert.
type Message struct {
	Candidate  model.AlertCandidate
	TenantName string
	Location   *time.Location
}

// Field is one labelled value on a card.
type Field struct {
	Label string
	Value string
}

// Card is the kind-neutral rendering every sender starts from.
type Card struct {
	Title    string
	Subtitle string
	Fields   []Field
	Button   string
	Link     string
}

func (m Message) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

// Render builds the card for the message's rule.
func (m Message) Render(frontendURL string) Card {
	c := m.Candidate
	switch c.RuleType {
	case model.RuleDataQuality:
		return m.dataQualityCard(frontendURL)
	case model.RuleMonthlySummary:
		return m.summaryCard(frontendURL)
	}

	card := Card{Title: ruleTitle(c.RuleType)}
	if c.Subscription == nil {
		return card
	}
	sub := c.Subscription
	card.Subtitle = sub.DisplayName()
	card.Fields = []Field{
		{Label: "Renewal Date", Value: sub.NextRenewalDate.UTC().Format(datetime.DisplayDateFormat)},
		{Label: "Amount", Value: currency.NewMoney(sub.Amount, sub.Currency).Display()},
		{Label: "Billing Cycle", Value: titleCase(string(sub.BillingCycle))},
		{Label: "Department", Value: orUnassigned(sub.DepartmentName)},
		{Label: "Owner", Value: orUnassigned(sub.OwnerName)},
	}
	card.Button = "View Subscription"
	card.Link = fmt.Sprintf("%s/subscriptions/%s", frontendURL, sub.ID)
	return card
}

func (m Message) dataQualityCard(frontendURL string) Card {
	gaps := m.Candidate.Gaps
	card := Card{
		Title:    "Subscription Data Needs Attention",
		Subtitle: fmt.Sprintf("%d active subscription(s) missing ownership details", len(gaps)),
		Button:   "Review Subscriptions",
		Link:     frontendURL + "/subscriptions",
	}
	for i, sub := range gaps {
		if i == maxGapLines {
			card.Fields = append(card.Fields, Field{Label: "More", Value: fmt.Sprintf("and %d more", len(gaps)-maxGapLines)})
			break
		}
		card.Fields = append(card.Fields, Field{
			Label: sub.DisplayName(),
			Value: "Missing " + strings.Join(sub.MissingFields(), ", "),
		})
	}
	return card
}

func (m Message) summaryCard(frontendURL string) Card {
	card := Card{
		Title:    "Monthly Subscription Summary",
		Subtitle: m.Candidate.DueDate.Format(datetime.MonthFormat),
		Button:   "Open Dashboard",
		Link:     frontendURL + "/dashboard",
	}
	if s := m.Candidate.Summary; s != nil {
		card.Fields = []Field{
			{Label: "Active Subscriptions", Value: fmt.Sprintf("%d", s.ActiveCount)},
			{Label: "Monthly Spend", Value: currency.NewMoney(s.TotalMonthlyAmount, s.Currency).Display()},
			{Label: "Renewals Next 30 Days", Value: fmt.Sprintf("%d", s.UpcomingCount)},
		}
	}
	return card
}

// Text is a one-line plain rendering used as chat fallback text.
func (c Card) Text() string {
	if c.Subtitle == "" {
		return c.Title
	}
	return c.Title + ": " + c.Subtitle
}

func ruleTitle(rule model.RuleType) string {
	switch rule {
	case model.RuleTomorrow:
		return "Subscription Renews Tomorrow"
	case model.RuleOverdue:
		return "Subscription Renewal Overdue"
	}
	if days, ok := rule.LeadDays(); ok {
		return fmt.Sprintf("Subscription Renews in %d Days", days)
	}
	return "Subscription Alert"
}

func orUnassigned(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return unassigned
	}
	return *s
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
