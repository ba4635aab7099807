package sheets

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/export"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

type fakeSink struct {
	replaced  map[string][][]string
	formatted map[string][]int
	failOn    string
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		replaced:  map[string][][]string{},
		formatted: map[string][]int{},
	}
}

func (f *fakeSink) Replace(_ context.Context, tab string, rows [][]string) error {
	if tab == f.failOn {
		return errors.New("sink unavailable")
	}
	f.replaced[tab] = rows
	return nil
}

func (f *fakeSink) FormatNumeric(_ context.Context, tab string, columns []int) error {
	f.formatted[tab] = columns
	return nil
}

func tempState(t *testing.T) *StateStore {
	t.Helper()
	state, err := NewStateStore(filepath.Join(t.TempDir(), "sync_state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state
}

func testSnapshot(name string) *export.Snapshot {
	return &export.Snapshot{
		Name:           name,
		Columns:        []string{"license_number", "dba_name"},
		Rows:           [][]string{{"7", "LOU'S DINER"}},
		NumericColumns: []string{"license_number"},
	}
}

func TestPublishFirstRunWritesAllTabs(t *testing.T) {
	sink := newFakeSink()
	state := tempState(t)
	p := NewPublisher(sink, state)

	snaps := []*export.Snapshot{testSnapshot("restaurants"), testSnapshot("inspections")}
	report, err := p.Publish(context.Background(), snaps)
	require.NoError(t, err)

	assert.Equal(t, []string{"restaurants", "inspections"}, report.Published)
	assert.Empty(t, report.Skipped)

	rows := sink.replaced["restaurants"]
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"license_number", "dba_name"}, rows[0])
	assert.Equal(t, []int{0}, sink.formatted["restaurants"])
}

func TestPublishSkipsUnchangedTab(t *testing.T) {
	sink := newFakeSink()
	state := tempState(t)
	p := NewPublisher(sink, state)

	snaps := []*export.Snapshot{testSnapshot("restaurants")}
	_, err := p.Publish(context.Background(), snaps)
	require.NoError(t, err)

	sink.replaced = map[string][][]string{}
	report, err := p.Publish(context.Background(), snaps)
	require.NoError(t, err)

	assert.Equal(t, []string{"restaurants"}, report.Skipped)
	assert.Empty(t, report.Published)
	assert.Empty(t, sink.replaced)
}

func TestPublishRepublishesAfterChange(t *testing.T) {
	sink := newFakeSink()
	state := tempState(t)
	p := NewPublisher(sink, state)

	snap := testSnapshot("restaurants")
	_, err := p.Publish(context.Background(), []*export.Snapshot{snap})
	require.NoError(t, err)

	changed := testSnapshot("restaurants")
	changed.Rows = append(changed.Rows, []string{"8", "TACO SPOT"})
	report, err := p.Publish(context.Background(), []*export.Snapshot{changed})
	require.NoError(t, err)

	assert.Equal(t, []string{"restaurants"}, report.Published)
	assert.Len(t, sink.replaced["restaurants"], 3)
}

func TestPublishRowOrderDoesNotForceRepublish(t *testing.T) {
	sink := newFakeSink()
	state := tempState(t)
	p := NewPublisher(sink, state)

	snap := testSnapshot("restaurants")
	snap.Rows = [][]string{{"7", "LOU'S DINER"}, {"8", "TACO SPOT"}}
	_, err := p.Publish(context.Background(), []*export.Snapshot{snap})
	require.NoError(t, err)

	reordered := testSnapshot("restaurants")
	reordered.Rows = [][]string{{"8", "TACO SPOT"}, {"7", "LOU'S DINER"}}
	report, err := p.Publish(context.Background(), []*export.Snapshot{reordered})
	require.NoError(t, err)

	assert.Equal(t, []string{"restaurants"}, report.Skipped)
}

func TestPublishFailureLeavesStateUntouched(t *testing.T) {
	sink := newFakeSink()
	sink.failOn = "restaurants"
	state := tempState(t)
	p := NewPublisher(sink, state)

	snap := testSnapshot("restaurants")
	_, err := p.Publish(context.Background(), []*export.Snapshot{snap})
	require.Error(t, err)

	fp, err := state.LastFingerprint("restaurants")
	require.NoError(t, err)
	assert.Empty(t, fp)

	// Next run retries and succeeds.
	sink.failOn = ""
	report, err := p.Publish(context.Background(), []*export.Snapshot{snap})
	require.NoError(t, err)
	assert.Equal(t, []string{"restaurants"}, report.Published)
}

func TestStateStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync_state.db")

	state, err := NewStateStore(path)
	require.NoError(t, err)
	require.NoError(t, state.RecordPublish("inspections", "abc123", 42))
	require.NoError(t, state.Close())

	reopened, err := NewStateStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	fp, err := reopened.LastFingerprint("inspections")
	require.NoError(t, err)
	assert.Equal(t, "abc123", fp)
}
