package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithook "github.com/toastnco/prometheus/audit_hook"
	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/safety"
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (r *memRecorder) Record(_ context.Context, e *audithook.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func TestExtensionRecordsFeatureToggles(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	ext := audithook.New(rec)
	eventID := id.NewEventID()

	require.NoError(t, ext.OnFeatureEnabled(ctx, eventID, 10, 20, "welcome"))
	require.NoError(t, ext.OnFeatureDisabled(ctx, eventID, 10, "welcome", false))

	require.Len(t, rec.events, 2)

	enabled := rec.events[0]
	assert.Equal(t, audithook.ActionFeatureEnabled, enabled.Action)
	assert.Equal(t, "welcome", enabled.ResourceID)
	assert.Equal(t, "10", enabled.Metadata["guild_id"])
	assert.Equal(t, "20", enabled.Metadata["channel_id"])
	assert.Equal(t, eventID.String(), enabled.EventID.String())
	assert.Equal(t, id.PrefixAudit, enabled.ID.Prefix())

	disabled := rec.events[1]
	assert.Equal(t, audithook.ActionFeatureDisabled, disabled.Action)
	assert.Equal(t, audithook.OutcomeNoop, disabled.Outcome)
}

func TestExtensionRecordsMaliciousLink(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec)

	matches := []safety.Match{
		{ThreatType: "MALWARE", Threat: safety.ThreatEntry{URL: "http://bad.example/x"}},
		{ThreatType: "MALWARE", Threat: safety.ThreatEntry{URL: "http://bad.example/x"}},
	}
	require.NoError(t, ext.OnMaliciousLink(context.Background(), id.NewEventID(), 1, 2, 3, matches))

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, audithook.SeverityWarning, e.Severity)
	assert.Equal(t, []string{"http:>>bad.example>x"}, e.Metadata["links"])
	assert.Equal(t, []string{"MALWARE"}, e.Metadata["threats"])
}

func TestExtensionHandlerFailedCarriesReason(t *testing.T) {
	rec := &memRecorder{}
	ext := audithook.New(rec)

	require.NoError(t, ext.OnHandlerFailed(context.Background(), id.NewEventID(), "message", errors.New("boom")))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "boom", rec.events[0].Reason)
	assert.Equal(t, audithook.OutcomeFailure, rec.events[0].Outcome)
}

func TestEnabledActions(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionPermissionDenied))

	require.NoError(t, ext.OnGuildRegistered(ctx, guild.New(1)))
	require.NoError(t, ext.OnPermissionDenied(ctx, id.NewEventID(), 1, 2, "welcome"))

	require.Len(t, rec.events, 1)
	assert.Equal(t, audithook.ActionPermissionDenied, rec.events[0].Action)
}

func TestDisabledActions(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionWelcomeSent))

	require.NoError(t, ext.OnWelcomeSent(ctx, id.NewEventID(), 1, 2, time.Second))
	require.NoError(t, ext.OnGuildRegistered(ctx, guild.New(1)))

	require.Len(t, rec.events, 1)
	assert.Equal(t, audithook.ActionGuildRegistered, rec.events[0].Action)
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("sink down")
	})
	ext := audithook.New(failing)

	assert.NoError(t, ext.OnGuildRegistered(context.Background(), guild.New(1)))
}
