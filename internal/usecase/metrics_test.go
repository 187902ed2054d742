package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techpost/internal/domain"
)

func TestMetricsRefresherUpdatesRecentPosts(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{recent: []domain.PostRecord{
		{TweetID: "tw-1"},
		{TweetID: "tw-2"},
	}}
	publisher := &fakePublisher{metrics: []domain.TweetMetrics{
		{TweetID: "tw-1", Impressions: 1000, Engagements: 80},
		{TweetID: "tw-2", Impressions: 200, Engagements: 5},
	}}

	refresher := NewMetricsRefresher(repo, publisher, nil)
	refresher.now = func() time.Time { return pipelineNow }

	updated, err := refresher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	assert.Equal(t, []string{"tw-1", "tw-2"}, publisher.asked)
	require.Len(t, repo.engagements, 2)
	assert.Equal(t, engagementUpdate{"tw-1", 1000, 80}, repo.engagements[0])
	assert.Equal(t, engagementUpdate{"tw-2", 200, 5}, repo.engagements[1])

	require.Len(t, repo.executions, 1)
	entry := repo.executions[0]
	assert.Equal(t, "metrics_update", entry.Type)
	assert.Equal(t, domain.ExecutionSuccess, entry.Status)
	assert.Equal(t, 2, entry.ArticlesProcessed)
}

func TestMetricsRefresherNoRecentPosts(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	publisher := &fakePublisher{}

	refresher := NewMetricsRefresher(repo, publisher, nil)
	refresher.now = func() time.Time { return pipelineNow }

	updated, err := refresher.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Nil(t, publisher.asked, "no metrics lookup without recent posts")

	require.Len(t, repo.executions, 1)
	assert.Equal(t, domain.ExecutionSuccess, repo.executions[0].Status)
}

type manualScheduler struct {
	job func(time.Time)
}

func (m *manualScheduler) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualScheduler) Stop(context.Context) error { return nil }

func TestJobRunnerDispatchesByHour(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.source.articles = nil

	driver := &manualScheduler{}
	runner := NewJobRunner(driver, f.pipeline, NewMetricsRefresher(f.repo, f.publisher, nil),
		time.UTC, 9, 18, 2, nil)

	require.NoError(t, runner.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Date(2025, time.June, 16, 9, 0, 0, 0, time.UTC))
	require.Len(t, f.repo.executions, 1, "the morning hour triggers a posting run")
	assert.Equal(t, "post", f.repo.executions[0].Type)

	driver.job(time.Date(2025, time.June, 16, 2, 0, 0, 0, time.UTC))
	require.Len(t, f.repo.executions, 2, "the metrics hour triggers a refresh")
	assert.Equal(t, "metrics_update", f.repo.executions[1].Type)

	driver.job(time.Date(2025, time.June, 16, 13, 0, 0, 0, time.UTC))
	assert.Len(t, f.repo.executions, 2, "off-schedule hours do nothing")
}
