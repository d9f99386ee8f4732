package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamer_bot_updates_total",
		Help: "Telegram updates by how they were handled.",
	}, []string{"kind"})

	renamesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamer_bot_renames_total",
		Help: "Rename attempts by result.",
	}, []string{"result"})
)
