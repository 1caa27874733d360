package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/geogift/geogift/adapters/events"
	"github.com/geogift/geogift/ports"
)

// Notifier consumes progression events and turns them into emails. Events
// without a recipient email are acknowledged and dropped; a mailer failure is
// logged but still acknowledged, so a broken SMTP server never backs up the
// stream.
type Notifier struct {
	mailer ports.Mailer
	log    zerolog.Logger
}

// New creates a notifier.
func New(mailer ports.Mailer, log zerolog.Logger) *Notifier {
	return &Notifier{
		mailer: mailer,
		log:    log.With().Str("component", "notifier").Logger(),
	}
}

// Router builds a Watermill router with one handler per topic.
func (n *Notifier) Router(subscriber message.Subscriber, wmLogger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create notifier router: %w", err)
	}

	router.AddNoPublisherHandler("notify_step_completed", events.TopicStepCompleted, subscriber, n.handleStepCompleted)
	router.AddNoPublisherHandler("notify_chain_completed", events.TopicChainCompleted, subscriber, n.handleChainCompleted)
	router.AddNoPublisherHandler("notify_gift_claimed", events.TopicGiftClaimed, subscriber, n.handleGiftClaimed)
	return router, nil
}

func (n *Notifier) handleStepCompleted(msg *message.Message) error {
	var event events.StepCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		n.log.Warn().Str("msg", msg.UUID).Err(err).Msg("malformed step event dropped")
		return nil
	}
	if event.RecipientEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Step %d of %d unlocked in %q", event.StepIndex+1, event.TotalSteps, event.ChainTitle)
	body := fmt.Sprintf(
		"<p>You unlocked <strong>%s</strong> — step %d of %d in the gift chain %q.</p><p>Keep going!</p>",
		event.StepTitle, event.StepIndex+1, event.TotalSteps, event.ChainTitle,
	)
	n.send(msg, event.RecipientEmail, subject, body)
	return nil
}

func (n *Notifier) handleChainCompleted(msg *message.Message) error {
	var event events.ChainCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		n.log.Warn().Str("msg", msg.UUID).Err(err).Msg("malformed chain event dropped")
		return nil
	}
	if event.RecipientEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("You completed %q!", event.ChainTitle)
	body := fmt.Sprintf(
		"<p>Congratulations — you finished the gift chain %q and unlocked %s in total.</p>",
		event.ChainTitle, event.TotalValue,
	)
	n.send(msg, event.RecipientEmail, subject, body)
	return nil
}

func (n *Notifier) handleGiftClaimed(msg *message.Message) error {
	var event events.GiftClaimedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		n.log.Warn().Str("msg", msg.UUID).Err(err).Msg("malformed gift event dropped")
		return nil
	}

	// Gift claims carry no email; log for the audit trail only.
	n.log.Info().
		Str("gift", event.GiftID).
		Str("recipient", event.RecipientAddress).
		Msg("gift claimed")
	return nil
}

func (n *Notifier) send(msg *message.Message, to, subject, body string) {
	if err := n.mailer.Send(msg.Context(), to, subject, body); err != nil {
		n.log.Warn().Str("msg", msg.UUID).Str("to", to).Err(err).Msg("notification email failed")
	}
}
