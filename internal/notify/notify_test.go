package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/internal/budget"
	"wallet/internal/log"
)

type recorder struct {
	titles []string
	err    error
}

func (r *recorder) Deliver(_ context.Context, title, _ string, _ budget.Severity) error {
	r.titles = append(r.titles, title)
	return r.err
}

type fakePublisher struct {
	severity string
	err      error
}

func (f *fakePublisher) PublishBudgetAlert(_ context.Context, _, _, severity string) error {
	f.severity = severity
	return f.err
}

func TestLogNotifier_LevelBySeverity(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(log.New(log.Config{Format: "json", Output: &buf}))

	require.NoError(t, n.Deliver(context.Background(), "Budget Warning!", "You have $50.00 remaining (5% left)", budget.SeverityWarning))
	require.NoError(t, n.Deliver(context.Background(), "Budget Alert!", "You have $250.00 remaining (25% left)", budget.SeverityInfo))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"WARN"`)
	assert.Contains(t, lines[0], `"component":"notify"`)
	assert.Contains(t, lines[1], `"level":"INFO"`)
}

func TestAMQPNotifier_PassesSeverity(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewAMQPNotifier(pub).Deliver(context.Background(), "t", "m", budget.SeverityWarning))
	assert.Equal(t, "warning", pub.severity)

	pub.err = errors.New("broker down")
	err := NewAMQPNotifier(pub).Deliver(context.Background(), "t", "m", budget.SeverityInfo)
	assert.ErrorIs(t, err, pub.err)
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{err: boom}, &recorder{}

	err := Multi{a, nil, b}.Deliver(context.Background(), "Budget Set", "m", budget.SeverityInfo)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Budget Set"}, a.titles)
	assert.Equal(t, []string{"Budget Set"}, b.titles)
}

func TestSafe_SwallowsErrorsAndPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})

	failing := NewSafe(&recorder{err: errors.New("smtp down")}, logger)
	assert.NoError(t, failing.Deliver(context.Background(), "a", "b", budget.SeverityInfo))
	assert.Contains(t, buf.String(), "smtp down")

	panicking := NewSafe(Func(func(context.Context, string, string, budget.Severity) error {
		panic("nil map")
	}), logger)
	assert.NotPanics(t, func() {
		assert.NoError(t, panicking.Deliver(context.Background(), "a", "b", budget.SeverityWarning))
	})
	assert.Contains(t, buf.String(), "Notifier panicked")

	assert.NoError(t, NewSafe(nil, logger).Deliver(context.Background(), "a", "b", budget.SeverityInfo))
}
