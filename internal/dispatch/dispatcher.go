// Package dispatch delivers alerts to tenant channels. Each channel kind has
// its own Sender that renders a kind-specific payload from the same Message.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/renewalwatch/backend/internal/metrics"
	"github.com/renewalwatch/backend/internal/model"
)

// ErrUnsupportedKind is reported for channels whose kind has no sender.
var ErrUnsupportedKind = errors.New("unsupported channel kind")

// DefaultTimeout bounds a single webhook POST.
const DefaultTimeout = 10 * time.Second

// Sender posts one message to one channel.
type Sender interface {
	Kind() model.ChannelKind
	Send(ctx context.Context, channel model.AlertChannel, msg Message) Result
}

// Result is the outcome of one delivery attempt. Status is Sent only for a
// 2xx response; ResponseCode and ResponseBody are set whenever a response
// arrived.
type Result struct {
	Status       model.AlertStatus
	ResponseCode *int
	ResponseBody *string
	Err          error
}

func (r Result) Sent() bool {
	return r.Status == model.AlertStatusSent
}

// ErrorMessage is the text stored on a failed log.
func (r Result) ErrorMessage() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	if r.ResponseCode != nil {
		return fmt.Sprintf("unexpected status %d", *r.ResponseCode)
	}
	return "delivery failed"
}

func failed(err error) Result {
	return Result{Status: model.AlertStatusFailed, Err: err}
}

// Dispatcher routes a message to the sender registered for the channel kind.
type Dispatcher struct {
	senders map[model.ChannelKind]Sender
	logger  *slog.Logger
}

func NewDispatcher(logger *slog.Logger, senders ...Sender) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		senders: make(map[model.ChannelKind]Sender, len(senders)),
		logger:  logger,
	}
	for _, s := range senders {
		d.senders[s.Kind()] = s
	}
	return d
}

// NewDefaultDispatcher wires the three built-in senders over one client.
func NewDefaultDispatcher(frontendURL string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	client := NewClient(timeout)
	return NewDispatcher(logger,
		NewGoogleChatSender(client, frontendURL),
		NewSlackSender(client, frontendURL),
		NewWebhookSender(client, frontendURL),
	)
}

// Dispatch sends msg to channel exactly once. It never returns an error;
// every failure is folded into a Failed result.
func (d *Dispatcher) Dispatch(ctx context.Context, channel model.AlertChannel, msg Message) Result {
	sender, ok := d.senders[channel.Kind]
	if !ok {
		return failed(fmt.Errorf("%w: %s", ErrUnsupportedKind, channel.Kind))
	}

	start := time.Now()
	result := sender.Send(ctx, channel, msg)
	metrics.RecordDispatch(string(channel.Kind), string(result.Status), time.Since(start))

	if !result.Sent() {
		d.logger.Warn("alert delivery failed",
			"channel_id", channel.ID,
			"kind", channel.Kind,
			"rule_type", msg.Candidate.RuleType,
			"error", result.ErrorMessage(),
		)
	}
	return result
}
