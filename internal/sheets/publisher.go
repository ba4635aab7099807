package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/export"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

// SyncState is the publisher's view of the fingerprint store.
type SyncState interface {
	LastFingerprint(tab string) (string, error)
	RecordPublish(tab, fingerprint string, rowCount int) error
}

// Publisher pushes snapshots to a sink, skipping any tab whose content is
// byte-identical to the last published version.
type Publisher struct {
	sink  Sink
	state SyncState
}

func NewPublisher(sink Sink, state SyncState) *Publisher {
	return &Publisher{sink: sink, state: state}
}

// PublishReport summarizes one publishing run.
type PublishReport struct {
	Published []string
	Skipped   []string
}

// Publish walks the snapshots in order. A tab that fails to publish stops
// the run; its state is not recorded, so the next run retries it.
func (p *Publisher) Publish(ctx context.Context, snaps []*export.Snapshot) (PublishReport, error) {
	var report PublishReport
	for _, snap := range snaps {
		prev, err := p.state.LastFingerprint(snap.Name)
		if err != nil {
			return report, err
		}

		decision := export.DetectChange(prev, snap)
		if !decision.Changed {
			metrics.PublishDecisions.WithLabelValues(snap.Name, "skipped").Inc()
			logger.Info("tab unchanged, skipping publish", zap.String("tab", snap.Name))
			report.Skipped = append(report.Skipped, snap.Name)
			continue
		}

		if err := p.publishOne(ctx, snap); err != nil {
			metrics.PublishDecisions.WithLabelValues(snap.Name, "failed").Inc()
			return report, fmt.Errorf("failed to publish %s: %w", snap.Name, err)
		}
		if err := p.state.RecordPublish(snap.Name, decision.Fingerprint, len(snap.Rows)); err != nil {
			return report, err
		}

		metrics.PublishDecisions.WithLabelValues(snap.Name, "published").Inc()
		logger.Info("published tab",
			zap.String("tab", snap.Name),
			zap.Int("rows", len(snap.Rows)))
		report.Published = append(report.Published, snap.Name)
	}
	return report, nil
}

func (p *Publisher) publishOne(ctx context.Context, snap *export.Snapshot) error {
	rows := make([][]string, 0, len(snap.Rows)+1)
	rows = append(rows, snap.Columns)
	rows = append(rows, snap.Rows...)
	if err := p.sink.Replace(ctx, snap.Name, rows); err != nil {
		return err
	}
	return p.sink.FormatNumeric(ctx, snap.Name, numericIndexes(snap))
}

func numericIndexes(snap *export.Snapshot) []int {
	byName := make(map[string]int, len(snap.Columns))
	for i, col := range snap.Columns {
		byName[col] = i
	}
	var idx []int
	for _, col := range snap.NumericColumns {
		if i, ok := byName[col]; ok {
			idx = append(idx, i)
		}
	}
	return idx
}
