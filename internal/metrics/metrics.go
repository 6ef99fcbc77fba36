package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxgw_messages_total",
			Help: "Messages lifecycle counter by stage and channel",
		},
		[]string{"stage", "channel"}, // scheduled|sent|failed|cancelled|inbound , sms|whatsapp|email|instagram
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inboxgw_webhook_events_total",
			Help: "Inbound webhook events by provider and outcome",
		},
		[]string{"provider", "outcome"}, // twilio|instagram , ok|ignored|invalid
	)

	SchedulerClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inboxgw_scheduler_claimed_total",
			Help: "Scheduled messages claimed and processed by tick",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MessagesTotal,
		WebhookEventsTotal,
		SchedulerClaimed,
	)
}
