package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/halftunes/internal/domain"
)

// fakeSearchClient answers from a map; terms listed in block wait for cancellation
type fakeSearchClient struct {
	results map[string][]domain.Track
	block   map[string]chan struct{}
	err     error
}

func (f *fakeSearchClient) Search(ctx context.Context, term string) ([]domain.Track, error) {
	if ch, ok := f.block[term]; ok {
		close(ch)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[term], nil
}

func setupSearch(t *testing.T, client *fakeSearchClient) (*SearchService, *testEnv) {
	t.Helper()
	env := setupManager(t)
	return NewSearchService(client, env.manager, env.store, nil), env
}

func TestSearchService_RejectsEmptyQuery(t *testing.T) {
	svc, _ := setupSearch(t, &fakeSearchClient{})

	_, err := svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Nil(t, svc.Latest())
}

func TestSearchService_KeepsLatestResultSet(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]domain.Track{
		"coldplay": {
			domain.NewTrack("Yellow", "Coldplay", "https://example.com/yellow.m4a"),
			domain.NewTrack("Yellow (dup)", "Coldplay", "https://example.com/yellow.m4a"),
			domain.NewTrack("Clocks", "Coldplay", "https://example.com/clocks.m4a"),
		},
	}}
	svc, _ := setupSearch(t, client)

	rs, err := svc.Search(context.Background(), " coldplay ")
	require.NoError(t, err)
	assert.Equal(t, "coldplay", rs.Query)
	assert.Equal(t, 2, rs.Len())
	assert.Same(t, rs, svc.Latest())

	track, ok := svc.Resolve("https://example.com/clocks.m4a")
	require.True(t, ok)
	assert.Equal(t, "Clocks", track.Name)

	_, ok = svc.Resolve("https://example.com/missing.m4a")
	assert.False(t, ok)
}

func TestSearchService_ErrorKeepsPreviousResults(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]domain.Track{
		"first": {domain.NewTrack("One", "", "https://example.com/one.m4a")},
	}}
	svc, _ := setupSearch(t, client)

	first, err := svc.Search(context.Background(), "first")
	require.NoError(t, err)

	client.err = errors.New("status 503")
	_, err = svc.Search(context.Background(), "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Same(t, first, svc.Latest())
}

func TestSearchService_NewSearchCancelsPrevious(t *testing.T) {
	started := make(chan struct{})
	client := &fakeSearchClient{
		results: map[string][]domain.Track{
			"fast": {domain.NewTrack("Fast", "", "https://example.com/fast.m4a")},
		},
		block: map[string]chan struct{}{"slow": started},
	}
	svc, _ := setupSearch(t, client)

	slowErr := make(chan error, 1)
	go func() {
		_, err := svc.Search(context.Background(), "slow")
		slowErr <- err
	}()
	<-started

	rs, err := svc.Search(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", rs.Query)

	select {
	case err := <-slowErr:
		assert.ErrorIs(t, err, ErrSearchSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("previous search was not canceled")
	}
	assert.Equal(t, "fast", svc.Latest().Query)
}

func TestSearchService_Annotate(t *testing.T) {
	svc, env := setupSearch(t, &fakeSearchClient{})

	downloaded := domain.NewTrack("Done", "", "https://example.com/done.m4a")
	active := domain.NewTrack("Active", "", "https://example.com/active.m4a")
	idle := domain.NewTrack("Idle", "", "https://example.com/idle.m4a")

	p, err := env.store.PathFor(downloaded.SourceURL)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	require.True(t, env.manager.Start(active))

	views := svc.Annotate(domain.NewResultSet("q", []domain.Track{downloaded, active, idle}))
	require.Len(t, views, 3)

	assert.True(t, views[0].Downloaded)
	assert.Equal(t, p, views[0].LocalPath)
	assert.Nil(t, views[0].Transfer)

	assert.False(t, views[1].Downloaded)
	require.NotNil(t, views[1].Transfer)
	assert.Equal(t, domain.StatusDownloading, views[1].Transfer.Status)

	assert.False(t, views[2].Downloaded)
	assert.Nil(t, views[2].Transfer)

	assert.Empty(t, svc.Annotate(nil))
}
