package maintenance

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trading-services/internal/domain"
)

// recorder captures calls in order and fails the call named in failOn.
type recorder struct {
	calls  []string
	failOn string
	err    error
}

func (r *recorder) call(name string) error {
	r.calls = append(r.calls, name)
	if name == r.failOn {
		return r.err
	}
	return nil
}

type fakeDB struct{ r *recorder }

func (f fakeDB) Init(context.Context) error { return f.r.call("db.init") }
func (f fakeDB) ModifyIndexTriggers(context.Context) error { return f.r.call("db.triggers") }
func (f fakeDB) UpdateIndexes(context.Context) error { return f.r.call("db.indexes") }
func (f fakeDB) VacuumDatabase(context.Context) error { return f.r.call("db.vacuum") }
func (f fakeDB) CheckForDeadlocks(context.Context) error { return f.r.call("db.deadlocks") }
func (f fakeDB) StopHungQueries(context.Context) error { return f.r.call("db.hung") }

type fakeQueue struct{ r *recorder }

func (f fakeQueue) Init(context.Context) error { return f.r.call("kafka.init") }
func (f fakeQueue) CleanTopic(_ context.Context, t string) error { return f.r.call("kafka.clean:" + t) }
func (f fakeQueue) ValidateCleaned(context.Context) error { return f.r.call("kafka.validate") }
func (f fakeQueue) CleanupTopics(context.Context) error { return f.r.call("kafka.cleanup") }
func (f fakeQueue) StopConsumers(context.Context) error { return f.r.call("kafka.consumers") }

type fakeObjects struct{ r *recorder }

func (f fakeObjects) Init(context.Context) error { return f.r.call("s3.init") }
func (f fakeObjects) MoveLargeBlobsToGlacier(context.Context) error { return f.r.call("s3.glacier") }
func (f fakeObjects) CleanUpOldBlobs(context.Context) error { return f.r.call("s3.old") }
func (f fakeObjects) StopHungUploads(context.Context) error { return f.r.call("s3.uploads") }

func fakeSystems(r *recorder) Systems {
	return Systems{Database: fakeDB{r}, Queue: fakeQueue{r}, ObjectStore: fakeObjects{r}}
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRunForward(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer

	err := Runner{Out: &out}.Run(context.Background(), domain.ModeRun, fakeSystems(rec))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"db.init", "db.triggers", "db.indexes", "db.vacuum", "db.deadlocks",
		"kafka.init",
		"kafka.clean:user-events", "kafka.clean:stock-events", "kafka.clean:trade-events",
		"kafka.clean:notification-events", "kafka.clean:maintenance-events",
		"kafka.validate",
		"s3.init", "s3.glacier", "s3.old",
	}, rec.calls)

	assert.Equal(t, []string{
		"Running maintenance",
		"Starting maintenance script",
		"Modifying index triggers",
		"Updating indexes",
		"Vacuuming database",
		"Checking for deadlocks",
		"Starting maintenance script for kafka",
		"Cleaning kafka topics",
		"Cleaning topic: user-events",
		"Cleaning topic: stock-events",
		"Cleaning topic: trade-events",
		"Cleaning topic: notification-events",
		"Cleaning topic: maintenance-events",
		"Asserting kafka topics are cleaned",
		"Starting maintenance script for s3",
		"Moving large blobs to glacier",
		"Cleaning up old blobs",
		"Maintenance completed",
	}, lines(out.String()))
}

func TestRunCleanup(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer

	err := Runner{Out: &out}.Run(context.Background(), domain.ModeCleanup, fakeSystems(rec))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"db.deadlocks", "db.hung",
		"kafka.cleanup", "kafka.consumers",
		"s3.uploads",
	}, rec.calls)
	assert.Equal(t, []string{
		"Running maintenance",
		"Cleaning up half performed maintenance",
		"Stopping hung queries",
		"Cleaning up half performed maintenance for kafka",
		"Stopping hung kafka consumers",
		"Cleaning up half performed maintenance for s3",
		"Maintenance completed",
	}, lines(out.String()))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	rec := &recorder{failOn: "db.deadlocks", err: ErrDeadlock}
	var out bytes.Buffer

	err := Runner{Out: &out}.Run(context.Background(), domain.ModeRun, fakeSystems(rec))
	require.ErrorIs(t, err, ErrDeadlock)
	assert.Equal(t, "database maintenance: deadlock detected", err.Error())

	assert.Equal(t, "db.deadlocks", rec.calls[len(rec.calls)-1])
	for _, c := range rec.calls {
		assert.False(t, strings.HasPrefix(c, "kafka.") || strings.HasPrefix(c, "s3."), c)
	}
	assert.NotContains(t, out.String(), "Maintenance completed")
}

func TestRunCleanupFailureInQueue(t *testing.T) {
	boom := errors.New("consumer group busy")
	rec := &recorder{failOn: "kafka.consumers", err: boom}

	err := Runner{}.Run(context.Background(), domain.ModeCleanup, fakeSystems(rec))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "kafka cleanup: consumer group busy", err.Error())
	assert.NotContains(t, rec.calls, "s3.uploads")
}

func TestRunVerbose(t *testing.T) {
	var out bytes.Buffer
	err := Runner{Out: &out, Verbose: true}.Run(context.Background(), domain.ModeCleanup, fakeSystems(&recorder{}))
	require.NoError(t, err)

	got := lines(out.String())
	assert.Contains(t, got, "Running database cleanup")
	assert.Contains(t, got, "database cleanup completed")
	assert.Contains(t, got, "Running s3 cleanup")
	assert.Contains(t, got, "s3 cleanup completed")
}

func TestPlanSystemsOrder(t *testing.T) {
	for _, mode := range []domain.MaintenanceMode{domain.ModeRun, domain.ModeCleanup} {
		var names []string
		for _, rb := range Plan(mode, fakeSystems(&recorder{})) {
			names = append(names, rb.System)
		}
		assert.Equal(t, []string{"database", "kafka", "s3"}, names, mode)
	}
}
