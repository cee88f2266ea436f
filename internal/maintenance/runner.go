// Package maintenance runs the operational runbooks against the database,
// the message queue and the object store. Each runbook is a fixed list of
// steps executed in order; the first failing step stops the whole run.
package maintenance

import (
	"context"
	"fmt"
	"io"

	"github.com/example/trading-services/internal/domain"
)

// Step prints Message (when set) and then calls Do.
type Step struct {
	Message string
	Do      func(ctx context.Context) error
}

// Runbook is the step list for one external system.
type Runbook struct {
	System string
	Intro  string
	Steps  []Step
}

type Systems struct {
	Database    Database
	Queue       Queue
	ObjectStore ObjectStore
}

// Plan returns the runbooks for mode in execution order.
func Plan(mode domain.MaintenanceMode, sys Systems) []Runbook {
	if mode == domain.ModeCleanup {
		return []Runbook{
			{
				System: "database",
				Intro:  "Cleaning up half performed maintenance",
				Steps: []Step{
					{Do: sys.Database.CheckForDeadlocks},
					{Message: "Stopping hung queries", Do: sys.Database.StopHungQueries},
				},
			},
			{
				System: "kafka",
				Intro:  "Cleaning up half performed maintenance for kafka",
				Steps: []Step{
					{Do: sys.Queue.CleanupTopics},
					{Message: "Stopping hung kafka consumers", Do: sys.Queue.StopConsumers},
				},
			},
			{
				System: "s3",
				Intro:  "Cleaning up half performed maintenance for s3",
				Steps: []Step{
					{Do: sys.ObjectStore.StopHungUploads},
				},
			},
		}
	}

	queueSteps := []Step{
		{Do: sys.Queue.Init},
		{Message: "Cleaning kafka topics", Do: noop},
	}
	for _, topic := range Topics {
		topic := topic
		queueSteps = append(queueSteps, Step{Message: "Cleaning topic: " + topic, Do: func(ctx context.Context) error {
			return sys.Queue.CleanTopic(ctx, topic)
		}})
	}
	queueSteps = append(queueSteps, Step{Message: "Asserting kafka topics are cleaned", Do: sys.Queue.ValidateCleaned})

	return []Runbook{
		{
			System: "database",
			Intro:  "Starting maintenance script",
			Steps: []Step{
				{Do: sys.Database.Init},
				{Message: "Modifying index triggers", Do: sys.Database.ModifyIndexTriggers},
				{Message: "Updating indexes", Do: sys.Database.UpdateIndexes},
				{Message: "Vacuuming database", Do: sys.Database.VacuumDatabase},
				{Message: "Checking for deadlocks", Do: sys.Database.CheckForDeadlocks},
			},
		},
		{
			System: "kafka",
			Intro:  "Starting maintenance script for kafka",
			Steps:  queueSteps,
		},
		{
			System: "s3",
			Intro:  "Starting maintenance script for s3",
			Steps: []Step{
				{Do: sys.ObjectStore.Init},
				{Message: "Moving large blobs to glacier", Do: sys.ObjectStore.MoveLargeBlobsToGlacier},
				{Message: "Cleaning up old blobs", Do: sys.ObjectStore.CleanUpOldBlobs},
			},
		},
	}
}

func noop(context.Context) error { return nil }

// Runner executes runbooks and reports progress to Out. Verbose adds a line
// before and after each system.
type Runner struct {
	Out     io.Writer
	Verbose bool
}

// Run executes every runbook for mode. It does not retry: the first error is
// returned wrapped with the system it came from.
func (r Runner) Run(ctx context.Context, mode domain.MaintenanceMode, sys Systems) error {
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	kind := "maintenance"
	if mode == domain.ModeCleanup {
		kind = "cleanup"
	}

	fmt.Fprintln(out, "Running maintenance")
	for _, rb := range Plan(mode, sys) {
		r.debugf("Running %s %s", rb.System, kind)
		fmt.Fprintln(out, rb.Intro)
		for _, step := range rb.Steps {
			if step.Message != "" {
				fmt.Fprintln(out, step.Message)
			}
			if err := step.Do(ctx); err != nil {
				return fmt.Errorf("%s %s: %w", rb.System, kind, err)
			}
		}
		r.debugf("%s %s completed", rb.System, kind)
	}
	fmt.Fprintln(out, "Maintenance completed")
	return nil
}

func (r Runner) debugf(format string, args ...any) {
	if r.Verbose && r.Out != nil {
		fmt.Fprintf(r.Out, format+"\n", args...)
	}
}
