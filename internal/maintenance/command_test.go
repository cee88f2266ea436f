package maintenance

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, rec *recorder, args ...string) (string, Options, error) {
	t.Helper()
	var got Options
	cmd := NewCommand(func(o Options) Systems {
		got = o
		return fakeSystems(rec)
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), got, err
}

func TestCommandDefaultsToForwardRun(t *testing.T) {
	rec := &recorder{}
	out, _, err := runCommand(t, rec, "--delay-scale", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Starting maintenance script")
	assert.Contains(t, rec.calls, "db.vacuum")
}

func TestCommandCleanupVerbose(t *testing.T) {
	rec := &recorder{}
	out, opts, err := runCommand(t, rec, "-c", "-v", "--delay-scale", "0.25", "--seed", "9")
	require.NoError(t, err)
	assert.True(t, opts.Cleanup)
	assert.True(t, opts.Verbose)
	assert.Equal(t, 0.25, opts.DelayScale)
	assert.Equal(t, int64(9), opts.Seed)
	assert.Contains(t, out, "Cleaning up half performed maintenance")
	assert.Contains(t, out, "Running database cleanup")
	assert.NotContains(t, rec.calls, "db.vacuum")
}

func TestCommandDelayScaleFromEnvironment(t *testing.T) {
	t.Setenv("MAINTENANCE_DELAY_SCALE", "0.01")
	_, opts, err := runCommand(t, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, 0.01, opts.DelayScale)
	assert.NotZero(t, opts.Seed)
}

func TestCommandReturnsFirstFailure(t *testing.T) {
	rec := &recorder{failOn: "db.deadlocks", err: ErrDeadlock}
	_, _, err := runCommand(t, rec, "--delay-scale", "0")
	assert.ErrorIs(t, err, ErrDeadlock)
}

func TestCommandRejectsArguments(t *testing.T) {
	_, _, err := runCommand(t, &recorder{}, "extra")
	assert.Error(t, err)
}
