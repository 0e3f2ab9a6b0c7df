package backup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	created = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_backups_created_total",
		Help: "Settings backups created by type",
	}, []string{"type"})

	pruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_backups_pruned_total",
		Help: "Settings backups removed by retention, by type and rule",
	}, []string{"type", "rule"})

	restores = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_backup_restores_total",
		Help: "Backup restore attempts by outcome",
	}, []string{"outcome"})
)
