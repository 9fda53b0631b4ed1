package utils

import (
	"sync"
)

type Event struct {
	Channel string      `json:"channel"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data"`
}

type Handler func(event Event)

// EventBus is the fire-and-forget broadcast collaborator. Publish never
// blocks: when the buffer is full the event is dropped. Delivery
// reliability is the subscriber's concern, not the publisher's.
type EventBus struct {
	subscribers map[string][]Handler
	events      chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]Handler),
		events:      make(chan Event, 100),
	}
}

func (eb *EventBus) Publish(channel, event string, data interface{}) {
	e := Event{Channel: channel, Event: event, Data: data}

	eb.mu.RLock()
	handlers := eb.subscribers[channel]
	eb.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}

	select {
	case eb.events <- e:
	default:
	}
}

func (eb *EventBus) Subscribe(channel string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[channel] = append(eb.subscribers[channel], handler)
}

func (eb *EventBus) SubscribeCh() <-chan Event {
	return eb.events
}
