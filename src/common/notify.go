package common

import (
	"astraion/src/lib"
	"astraion/src/types"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/zishang520/socket.io/v2/socket"
)

// Channel names mirror the rooms viewers subscribe to: one per trip,
// one shared clients feed and one coarse dashboard feed.
const (
	ChannelClients   = "clients"
	ChannelDashboard = "dashboard"
)

func TripChannel(tripId uuid.UUID) string {
	return fmt.Sprintf("trip_%s", tripId)
}

// Notifier is the abstract sink for change events. Delivery is
// best-effort: a failing sink never affects the mutation that
// produced the event.
type Notifier interface {
	Publish(ev types.ChangeEvent)
}

var notifiers []Notifier

func UseNotifiers(n ...Notifier) {
	notifiers = n
}

// Publish fans events out to every registered sink, fire-and-forget.
// Dashboard pings are coalesced through redis so a burst of writes
// produces a single data.changed per window.
func Publish(events ...types.ChangeEvent) {
	sinks := notifiers
	if len(sinks) == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[notify] recovered from sink panic: %v\n", r)
			}
		}()
		for _, ev := range events {
			if ev.Event == types.EVENT_DATA_CHANGED && !claimDashboardWindow() {
				continue
			}
			for _, n := range sinks {
				n.Publish(ev)
			}
		}
	}()
}

func claimDashboardWindow() bool {
	rd := lib.GetRedisClient()
	if rd == nil {
		return true
	}
	ok, err := rd.SetNX(context.Background(), "dashboard:data.changed", 1, 2*time.Second).Result()
	if err != nil {
		log.Printf("[notify] error coalescing dashboard ping: %s\n", err.Error())
		return true
	}
	return ok
}

// SocketNotifier emits events into socket.io rooms.
type SocketNotifier struct {
	Server *socket.Server
}

func (n *SocketNotifier) Publish(ev types.ChangeEvent) {
	n.Server.To(socket.Room(ev.Channel)).Emit(ev.Event, ev.Payload)
}

// KafkaNotifier mirrors every change event onto a kafka topic for
// downstream consumers.
type KafkaNotifier struct {
	Topic string
}

func (n *KafkaNotifier) Publish(ev types.ChangeEvent) {
	err := lib.KafkaProduceMessage("trip_events_producer", n.Topic, map[string]any{
		"channel": ev.Channel,
		"event":   ev.Event,
		"payload": ev.Payload,
	})
	if err != nil {
		log.Printf("[notify] error mirroring event to kafka: %s\n", err.Error())
	}
}
