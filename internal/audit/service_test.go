package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows        []TimelineRow
	gotLimit    int
	gotOffset   int
	gotFilters  TimelineFilters
	windowCalls int
}

func (r *stubRepo) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	r.windowCalls++
	r.gotFilters = filters
	r.gotLimit = limit
	r.gotOffset = offset
	if limit > len(r.rows) {
		limit = len(r.rows)
	}
	return r.rows[:limit], nil
}

func (r *stubRepo) All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	r.gotFilters = filters
	return r.rows, nil
}

func makeRows(n int) []TimelineRow {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{
			At:       base.Add(-time.Duration(i) * time.Minute),
			ActorID:  7,
			Action:   "ASSET_CREATE",
			Entity:   "ASSET",
			EntityID: "1",
		}
	}
	return rows
}

func TestTimelineWindowPaging(t *testing.T) {
	repo := &stubRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	// One extra row probes the next page.
	require.Equal(t, 21, repo.gotLimit)
	require.Equal(t, 0, repo.gotOffset)
}

func TestTimelineLastPage(t *testing.T) {
	repo := &stubRepo{rows: makeRows(5)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 20, repo.gotOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{rows: makeRows(60)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, result.Paging.PageSize)
	require.Len(t, result.Rows, 50)
}

func TestExportCSV(t *testing.T) {
	repo := &stubRepo{rows: makeRows(2)}
	svc := NewService(repo)

	payload, err := svc.ExportCSV(context.Background(), TimelineFilters{Entity: "ASSET"})
	require.NoError(t, err)
	require.Equal(t, "ASSET", repo.gotFilters.Entity)

	out := string(payload)
	require.Contains(t, out, "at,actor_id,action,entity,entity_id,meta")
	require.Contains(t, out, "ASSET_CREATE")
}
