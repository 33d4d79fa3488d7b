package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

func sealedReport(t *testing.T, id, target string, at time.Time, score int) *audit.Report {
	t.Helper()
	r, err := audit.NewReport(id, audit.MustParseTarget(target), at)
	require.NoError(t, err)

	sec := audit.FallbackSecurity()
	sec.Score = 35
	require.NoError(t, r.SetPerformance(audit.Fallback(audit.KindPerformance, audit.FallbackPerformance(), nil)))
	require.NoError(t, r.SetSecurity(audit.Succeeded(audit.KindSecurity, sec)))
	require.NoError(t, r.SetAccessibility(audit.Succeeded(audit.KindAccessibility, audit.FallbackAccessibility())))
	require.NoError(t, r.SetForms(audit.Succeeded(audit.KindForms, audit.FallbackForms())))
	require.NoError(t, r.SetPWA(audit.Succeeded(audit.KindPWA, audit.FallbackPWA())))
	require.NoError(t, r.SetBacklinks(audit.Succeeded(audit.KindBacklinks, audit.FallbackBacklinks())))
	require.NoError(t, r.SetInteractions(audit.Succeeded(audit.KindInteractions, audit.FallbackInteractions())))
	require.NoError(t, r.SetThirdParty(audit.Succeeded(audit.KindThirdParty, audit.FallbackThirdParty())))
	require.NoError(t, r.SetOverallScore(score, "two-term"))
	require.NoError(t, r.Seal())
	return r
}

func openTemp(t *testing.T) *HistoryRepository {
	t.Helper()
	repo, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestHistory_FindByTargetNewestFirst(t *testing.T) {
	repo := openTemp(t).WithReportPath(func(r *audit.Report) string { return "/reports/" + r.ID() + ".json" })
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		_, err := repo.Save(ctx, sealedReport(t, id, "https://example.com", base.Add(time.Duration(i)*time.Hour), 10*(i+1)))
		require.NoError(t, err)
	}
	_, err := repo.Save(ctx, sealedReport(t, "other", "https://other.org", base, 99))
	require.NoError(t, err)

	entries, err := repo.FindByTarget(ctx, "example.com", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ReportID)
	assert.Equal(t, 30, entries[0].OverallScore)
	assert.Equal(t, base.Add(2*time.Hour), entries[0].Timestamp)
	assert.Equal(t, "a", entries[2].ReportID)
	assert.Equal(t, 35, entries[2].Security)
	assert.Equal(t, 1, entries[2].FailedProbes)
	assert.Equal(t, "/reports/a.json", entries[2].ReportPath)

	limited, err := repo.FindByTarget(ctx, "https://example.com/", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	all, err := repo.FindAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestHistory_SaveIsIdempotentPerReport(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	r := sealedReport(t, "same", "https://example.com", time.Now(), 42)

	path, err := repo.Save(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, repo.Path(), path)
	_, err = repo.Save(ctx, r)
	require.NoError(t, err)

	all, err := repo.FindAll(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHistory_Discard(t *testing.T) {
	repo := openTemp(t)
	ctx := context.Background()
	kept := sealedReport(t, "kept", "https://example.com", time.Now(), 10)
	dropped := sealedReport(t, "dropped", "https://example.com", time.Now(), 20)

	for _, r := range []*audit.Report{kept, dropped} {
		_, err := repo.Save(ctx, r)
		require.NoError(t, err)
	}
	require.NoError(t, repo.Discard(ctx, dropped))
	require.NoError(t, repo.Discard(ctx, dropped))

	all, err := repo.FindAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "kept", all[0].ReportID)
}

func TestHistory_Validation(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, sharedErrors.ErrMissingRequired)

	repo := openTemp(t)
	unsealed, err := audit.NewReport("u", audit.MustParseTarget("example.com"), time.Now())
	require.NoError(t, err)
	_, err = repo.Save(context.Background(), unsealed)
	assert.ErrorIs(t, err, sharedErrors.ErrReportNotSealed)

	_, err = repo.FindByTarget(context.Background(), "", 1)
	assert.ErrorIs(t, err, sharedErrors.ErrEmptyTarget)
}
