package lead_test

import (
	"testing"
	"time"

	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/stretchr/testify/require"
)

func TestComputeMetrics_Empty(t *testing.T) {
	m := lead.ComputeMetrics(lead.DefaultStages, map[string][]lead.Lead{}, fixedNow)
	require.Equal(t, 0, m.TotalLeads)
	require.Equal(t, 0.0, m.ConversionRate)
	require.Equal(t, time.Duration(0), m.AvgTimeInPipeline)
	require.Equal(t, 0.0, m.TotalValue)
	require.Len(t, m.Stages, len(lead.DefaultStages))
	for _, sm := range m.Stages {
		require.Equal(t, 0.0, sm.Conversion)
	}
}

func TestComputeMetrics(t *testing.T) {
	byStage := map[string][]lead.Lead{
		"New Lead": {
			{ID: "a", LoanAmount: 1000, CreatedAt: fixedNow.Add(-48 * time.Hour)},
			{ID: "b", CreatedAt: fixedNow.Add(-24 * time.Hour)},
		},
		"Pre-Approved": {
			{ID: "c", LoanAmount: 2500, CreatedAt: fixedNow.Add(-72 * time.Hour)},
		},
		"Closed": {
			{ID: "d", LoanAmount: 500, CreatedAt: fixedNow.Add(-240 * time.Hour)},
		},
	}

	m := lead.ComputeMetrics(lead.DefaultStages, byStage, fixedNow)
	require.Equal(t, 4, m.TotalLeads)
	require.Equal(t, 25.0, m.ConversionRate)
	require.Equal(t, 4000.0, m.TotalValue)
	// closed lead excluded: (48h + 24h + 72h) / 3
	require.Equal(t, 48*time.Hour, m.AvgTimeInPipeline)

	require.Equal(t, 2, m.Stages["New Lead"].Count)
	require.Equal(t, 100.0, m.Stages["New Lead"].Conversion)
	require.Equal(t, 36*time.Hour, m.Stages["New Lead"].AvgTimeInStage)
	require.Equal(t, 50.0, m.Stages["Pre-Approved"].Conversion)
	require.Equal(t, 50.0, m.Stages["Contacted"].Conversion)
	require.Equal(t, 25.0, m.Stages["Closed"].Conversion)
	require.Equal(t, 500.0, m.Stages["Closed"].Value)
}

func TestComputeMetrics_IgnoresMissingTimestamps(t *testing.T) {
	byStage := map[string][]lead.Lead{
		"Contacted": {{ID: "a"}, {ID: "b", CreatedAt: fixedNow.Add(-10 * time.Hour)}},
	}
	m := lead.ComputeMetrics(lead.DefaultStages, byStage, fixedNow)
	require.Equal(t, 10*time.Hour, m.AvgTimeInPipeline)
	require.Equal(t, 0.0, m.ConversionRate)
}

func TestFormatDays(t *testing.T) {
	require.Equal(t, "0:00", lead.FormatDays(0))
	require.Equal(t, "2:05", lead.FormatDays(53*time.Hour))
	require.Equal(t, "0:00", lead.FormatDays(-time.Hour))
}

func TestToggleTag(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, lead.ToggleTag([]string{"a"}, "b"))
	require.Equal(t, []string{"a"}, lead.ToggleTag([]string{"a", "b"}, "b"))
}

func TestValidatePatch(t *testing.T) {
	blank := " "
	negative := -5.0
	require.ErrorIs(t, lead.ValidatePatch(lead.Patch{Name: &blank}), lead.ErrInvalidInput)
	require.ErrorIs(t, lead.ValidatePatch(lead.Patch{LoanAmount: &negative}), lead.ErrInvalidInput)
	require.NoError(t, lead.ValidatePatch(lead.Patch{}))
}
