package engine

import (
	"context"
	"time"

	"github.com/stationops/assetcycle/internal/persistence"
	"github.com/stationops/assetcycle/pkg/api"
)

// QueryEngine is the read-only aggregation surface. It has no write
// authority and no transactional relationship with the engines: aggregates
// may trail the write path.
type QueryEngine struct {
	records persistence.RecordStore
	now     func() time.Time
}

var _ api.QueryService = (*QueryEngine)(nil)

// NewQueryEngine creates a QueryEngine over the given record store.
func NewQueryEngine(records persistence.RecordStore) *QueryEngine {
	return &QueryEngine{records: records, now: time.Now}
}

func (q *QueryEngine) PendingDisposals(ctx context.Context, stationID string) ([]*api.DisposalRecord, error) {
	return q.records.ListDisposals(ctx, persistence.DisposalFilter{
		StationID: stationID,
		Status:    api.DisposalPending,
	})
}

func (q *QueryEngine) UpcomingMaintenance(ctx context.Context, stationID string, daysAhead int) ([]*api.MaintenanceRecord, error) {
	if daysAhead < 0 {
		return nil, &api.ValidationError{Field: "daysAhead", Reason: "must not be negative"}
	}
	now := q.now().UTC()
	return q.records.ListMaintenance(ctx, persistence.MaintenanceFilter{
		StationID: stationID,
		Status:    api.MaintenanceScheduled,
		From:      now,
		To:        now.AddDate(0, 0, daysAhead),
	})
}

func (q *QueryEngine) DisposalStats(ctx context.Context, stationID string, from, to time.Time) (api.DisposalStats, error) {
	records, err := q.records.ListDisposals(ctx, persistence.DisposalFilter{
		StationID: stationID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return api.DisposalStats{}, err
	}

	var stats api.DisposalStats
	for _, rec := range records {
		stats.Total++
		switch rec.Status {
		case api.DisposalPending:
			stats.Pending++
		case api.DisposalApproved:
			stats.Approved++
		case api.DisposalRejected:
			stats.Rejected++
		case api.DisposalCompleted:
			stats.Completed++
			stats.TotalBookValue += rec.BookValue
			stats.TotalDisposalValue += rec.DisposalValue
			stats.NetLossGain += rec.LossGain()
		}
	}
	return stats, nil
}

func (q *QueryEngine) MaintenanceStats(ctx context.Context, stationID string, from, to time.Time) (api.MaintenanceStats, error) {
	records, err := q.records.ListMaintenance(ctx, persistence.MaintenanceFilter{
		StationID: stationID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return api.MaintenanceStats{}, err
	}

	var stats api.MaintenanceStats
	for _, rec := range records {
		stats.Total++
		switch rec.Status {
		case api.MaintenanceScheduled:
			stats.Scheduled++
		case api.MaintenanceInProgress:
			stats.InProgress++
		case api.MaintenanceCompleted:
			stats.Completed++
			stats.TotalLaborCost += rec.LaborCost
			stats.TotalPartsCost += rec.PartsCost
		case api.MaintenanceCanceled:
			stats.Canceled++
		}
	}
	return stats, nil
}
