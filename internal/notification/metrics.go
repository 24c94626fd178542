package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewroom_notifications_total",
		Help: "Chat notifications by event and delivery result.",
	}, []string{"event", "result"})

	memberLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewroom_member_lookups_total",
		Help: "Chat member id lookups by source.",
	}, []string{"source"})
)
