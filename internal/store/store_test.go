package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/generate"
	"pagecraft/internal/template"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &generate.Attempt{
		ID:         "att-1",
		TemplateID: "tmpl-sales",
		Kind:       template.KindSalesPDP,
		Phase:      generate.PhaseInitial,
		ModelCalls: 1,
		Outcome:    "ok",
		PromptHash: "abc123",
		RawHash:    "def456",
		Report:     &template.Report{RestoredSections: 3, RestoredImageSlots: 2},
		StartedAt:  time.Now().Add(-2 * time.Minute),
		Duration:   1500 * time.Millisecond,
	}
	require.NoError(t, s.RecordAttempt(ctx, first))
	require.NoError(t, s.RecordAttempt(ctx, &generate.Attempt{
		ID:         "att-2",
		TemplateID: "tmpl-sales",
		Kind:       template.KindSalesPDP,
		Phase:      generate.PhaseRepairInvalidJSON,
		ModelCalls: 2,
		Outcome:    "malformed_output",
		StartedAt:  time.Now(),
		Duration:   800 * time.Millisecond,
	}))

	rows, err := s.Attempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first.
	assert.Equal(t, "att-2", rows[0].ID)
	assert.Equal(t, generate.PhaseRepairInvalidJSON, rows[0].Phase)
	assert.Equal(t, "malformed_output", rows[0].Outcome)

	assert.Equal(t, "att-1", rows[1].ID)
	assert.Equal(t, template.KindSalesPDP, rows[1].Kind)
	assert.Equal(t, 3, rows[1].Report.RestoredSections)
	assert.Equal(t, 2, rows[1].Report.RestoredImageSlots)
	assert.Equal(t, 1500*time.Millisecond, rows[1].Duration)
}

func TestStoreAttemptsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordAttempt(ctx, &generate.Attempt{
			ID:         string(rune('a' + i)),
			TemplateID: "t",
			Kind:       template.KindListicle,
			Phase:      generate.PhaseInitial,
			Outcome:    "ok",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rows, err := s.Attempts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "e", rows[0].ID)
}
