package notifier

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/eventbus"
	"github.com/MikhailHal/IlluMefy-Guardian/internal/service"

	log "github.com/sirupsen/logrus"
)

// Embed colors
const (
	colorAlert     = 0xE74C3C
	colorEmergency = 0x992D22
	colorReply     = 0x3498DB
)

// Discord caps embed field values at 1024 characters.
const maxFieldValueLen = 1024

type MessageSender interface {
	SendMessage(ctx context.Context, channelID, content string, embed *Embed) error
}

// Notifier consumes notification events from the bus, renders them as
// Discord messages and delivers them. Delivery is fire-and-forget: failures
// are logged and never escalate back into the detection pipeline.
type Notifier struct {
	sender         MessageSender
	channels       map[domain.EventKind]string
	defaultChannel string
}

func New(sender MessageSender, channels map[domain.EventKind]string, defaultChannel string) *Notifier {
	return &Notifier{
		sender:         sender,
		channels:       channels,
		defaultChannel: defaultChannel,
	}
}

// Register subscribes the notifier to every event kind it handles.
func (n *Notifier) Register(bus eventbus.Bus) {
	bus.Subscribe(domain.EventDiscordNotification, n.handleEvent)
	bus.Subscribe(domain.EventEmergencyAlert, n.handleEvent)
	bus.Subscribe(domain.EventCommandReply, n.handleEvent)
}

func (n *Notifier) handleEvent(event domain.NotificationEvent) {
	channelID := n.resolveChannel(event.Kind)
	embed := n.renderEmbed(event)

	if err := n.sender.SendMessage(context.Background(), channelID, event.Message, embed); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"kind":       event.Kind,
			"channel_id": channelID,
		}).Error("Failed to deliver notification")
	}
}

// resolveChannel falls back to the default channel when no channel is
// configured for the event kind.
func (n *Notifier) resolveChannel(kind domain.EventKind) string {
	if channelID, ok := n.channels[kind]; ok && channelID != "" {
		return channelID
	}
	log.WithField("kind", kind).Warn("No channel configured for notification type, using default channel")
	return n.defaultChannel
}

func (n *Notifier) renderEmbed(event domain.NotificationEvent) *Embed {
	switch event.Kind {
	case domain.EventDiscordNotification:
		if detail, ok := event.AdditionalData["detection"].(*service.DetectionDetail); ok {
			return renderDetection(detail)
		}
		return nil
	case domain.EventEmergencyAlert:
		embed := &Embed{Title: "Emergency alert", Color: colorEmergency}
		if detail, ok := event.AdditionalData["detection"].(*service.DetectionDetail); ok {
			embed.Fields = append(embed.Fields,
				EmbedField{Name: "Edit", Value: detail.EditHistoryID, Inline: true},
				EmbedField{Name: "Creator", Value: detail.CreatorName, Inline: true},
				EmbedField{Name: "Error", Value: truncate(detail.RevertError)},
			)
		}
		return embed
	case domain.EventCommandReply:
		return &Embed{Description: event.Message, Color: colorReply}
	default:
		return nil
	}
}

func renderDetection(detail *service.DetectionDetail) *Embed {
	embed := &Embed{
		Title: "Malicious edit detected",
		Color: colorAlert,
		Fields: []EmbedField{
			{Name: "Creator", Value: fmt.Sprintf("%s (%s)", detail.CreatorName, detail.CreatorID), Inline: true},
			{Name: "Editor", Value: fmt.Sprintf("%s / %s", detail.EditorID, detail.EditorPhoneNumber), Inline: true},
			{Name: "Risk", Value: fmt.Sprintf("%.0f%%", detail.Verdict.RiskScore*100), Inline: true},
			{Name: "Reason", Value: truncate(detail.Verdict.Reason)},
		},
	}

	if s := detail.Verdict.Scores; s != nil {
		embed.Fields = append(embed.Fields, EmbedField{
			Name: "Scores",
			Value: fmt.Sprintf(
				"toxicity %.2f | severe %.2f | identity attack %.2f | insult %.2f | profanity %.2f | threat %.2f",
				s.Toxicity, s.SevereToxicity, s.IdentityAttack, s.Insult, s.Profanity, s.Threat),
		})
	}

	for _, change := range detail.ChangedFields {
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  change.Field,
			Value: truncate(fmt.Sprintf("before: %s\nafter: %s", change.Before, change.After)),
		})
	}

	if len(detail.TagsAdded) > 0 || len(detail.TagsRemoved) > 0 {
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  "tags",
			Value: truncate(fmt.Sprintf("added: %v\nremoved: %v", detail.TagsAdded, detail.TagsRemoved)),
		})
	}

	revertStatus := "✅ reverted"
	if !detail.AutoRevertSuccess {
		revertStatus = "❌ revert failed: " + detail.RevertError
	}
	embed.Fields = append(embed.Fields, EmbedField{Name: "Auto revert", Value: truncate(revertStatus)})

	return embed
}

func truncate(value string) string {
	if value == "" {
		return "-"
	}
	if len(value) <= maxFieldValueLen {
		return value
	}

	// Cut on a rune boundary so multibyte text never yields invalid UTF-8.
	cut := maxFieldValueLen - 3
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut] + "..."
}
