package eventbus

import (
	"sync"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Subscriber consumes one event. Delivery is at-most-once per registered
// subscriber; whatever the subscriber does with it is its own business.
type Subscriber func(event domain.NotificationEvent)

// Bus is in-process publish/subscribe: no persistence, no buffering, no
// replay. A subscriber registered after publish misses the event.
type Bus interface {
	Publish(event domain.NotificationEvent)
	Subscribe(kind domain.EventKind, fn Subscriber)
}

type GuardianBus struct {
	mu          sync.RWMutex
	subscribers map[domain.EventKind][]Subscriber
}

func New() *GuardianBus {
	return &GuardianBus{
		subscribers: make(map[domain.EventKind][]Subscriber),
	}
}

func (b *GuardianBus) Subscribe(kind domain.EventKind, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[kind] = append(b.subscribers[kind], fn)
}

// Publish delivers the event to each current subscriber in registration
// order, synchronously, so a publisher's events keep their relative order.
func (b *GuardianBus) Publish(event domain.NotificationEvent) {
	b.mu.RLock()
	subscribers := b.subscribers[event.Kind]
	b.mu.RUnlock()

	if len(subscribers) == 0 {
		log.WithField("kind", event.Kind).Debug("No subscribers for event")
		return
	}

	for _, fn := range subscribers {
		fn(event)
	}
}

func (b *GuardianBus) EmitDiscordNotification(message string, additionalData map[string]interface{}) {
	b.Publish(domain.NotificationEvent{
		Kind:           domain.EventDiscordNotification,
		Message:        message,
		AdditionalData: additionalData,
	})
}

func (b *GuardianBus) EmitEmergencyAlert(message string, additionalData map[string]interface{}) {
	b.Publish(domain.NotificationEvent{
		Kind:           domain.EventEmergencyAlert,
		Message:        message,
		AdditionalData: additionalData,
	})
}

func (b *GuardianBus) EmitCommandReply(message string, additionalData map[string]interface{}) {
	b.Publish(domain.NotificationEvent{
		Kind:           domain.EventCommandReply,
		Message:        message,
		AdditionalData: additionalData,
	})
}
