package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricName is the closed set of system counter names.
type MetricName string

const (
	MetricTotalEvents         MetricName = "TOTAL_EVENTS"
	MetricTotalUsers          MetricName = "TOTAL_USERS"
	MetricActiveEvents        MetricName = "ACTIVE_EVENTS"
	MetricTotalRsvps          MetricName = "TOTAL_RSVPS"
	MetricAverageResponseTime MetricName = "AVERAGE_RESPONSE_TIME"
	MetricSystemUptime        MetricName = "SYSTEM_UPTIME"
)

// Valid reports whether n is one of the declared metric names.
func (n MetricName) Valid() bool {
	switch n {
	case MetricTotalEvents, MetricTotalUsers, MetricActiveEvents,
		MetricTotalRsvps, MetricAverageResponseTime, MetricSystemUptime:
		return true
	}
	return false
}

// SystemMetrics is one time-stamped observation of a named system counter.
// The table is an append-only series; "latest" means highest timestamp.
type SystemMetrics struct {
	ID              uint64          `gorm:"primaryKey" json:"id"`
	MetricName      MetricName      `gorm:"size:100;index;not null" json:"metricName"`
	MetricValue     decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"metricValue"`
	MetricTimestamp time.Time       `gorm:"not null;index" json:"metricTimestamp"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

func (SystemMetrics) TableName() string { return "system_metrics" }
