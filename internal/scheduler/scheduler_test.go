package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkpost/internal/models"
	"linkpost/internal/repository"
	"linkpost/internal/service"
	"linkpost/internal/transfer"
	"linkpost/pkg/utils"
)

// fakeGateway resolves every token to a deterministic owner id and counts
// publish attempts.
type fakeGateway struct {
	mu           sync.Mutex
	verifyValid  bool
	verifyErr    error
	publishErr   error
	publishID    string
	publishCalls int
	profiles     map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		verifyValid: true,
		publishID:   "urn:li:share:1",
		profiles: map[string]string{
			"tok":         "member-1",
			"other-token": "member-2",
		},
	}
}

func (f *fakeGateway) AuthURL(state string) string { return "https://example.test/auth?state=" + state }

func (f *fakeGateway) ExchangeCode(ctx context.Context, code string) (*transfer.TokenResult, error) {
	return &transfer.TokenResult{AccessToken: "token-" + code}, nil
}

func (f *fakeGateway) VerifyAccessToken(ctx context.Context, accessToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyValid, f.verifyErr
}

func (f *fakeGateway) GetProfile(ctx context.Context, accessToken string) (*transfer.LinkedInProfile, error) {
	id, ok := f.profiles[accessToken]
	if !ok {
		id = "member-unknown"
	}
	return &transfer.LinkedInProfile{
		ID:        id,
		FirstName: "Test",
		LastName:  "User",
	}, nil
}

func (f *fakeGateway) PublishPost(ctx context.Context, accessToken, content string, link *models.LinkAttachment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishCalls++
	if f.publishErr != nil {
		return "", f.publishErr
	}
	return f.publishID, nil
}

func (f *fakeGateway) GetSocialActions(ctx context.Context, accessToken, postID string) (*models.PostStats, error) {
	return &models.PostStats{}, nil
}

func (f *fakeGateway) setVerifyValid(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyValid = v
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishCalls
}

var _ service.LinkedInService = (*fakeGateway)(nil)

type fixture struct {
	sched       *Scheduler
	gateway     *fakeGateway
	repo        repository.ScheduledPostRepository
	historyRepo repository.HistoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	repo, err := repository.NewScheduledPostRepository(dir)
	require.NoError(t, err)
	historyRepo, err := repository.NewHistoryRepository(dir)
	require.NoError(t, err)

	gateway := newFakeGateway()
	history := service.NewHistoryService(historyRepo, gateway)
	cipher := utils.NewTokenCipher("test-secret")

	sched := New(repo, history, gateway, cipher)
	t.Cleanup(sched.Stop)

	return &fixture{
		sched:       sched,
		gateway:     gateway,
		repo:        repo,
		historyRepo: historyRepo,
	}
}

func TestSchedulePostValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	_, err := fx.sched.SchedulePost(ctx, "tok", "  ", future, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = fx.sched.SchedulePost(ctx, "tok", "hello", time.Now().Add(-time.Minute), nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	fx.gateway.setVerifyValid(false)
	_, err = fx.sched.SchedulePost(ctx, "tok", "hello", future, nil)
	assert.ErrorIs(t, err, models.ErrAuth)
}

func TestSchedulePostRoundTrip(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour).Truncate(time.Second)
	link := &models.LinkAttachment{URL: "https://example.test/a", Title: "A", Description: "B"}

	created, err := fx.sched.SchedulePost(ctx, "tok", "hello world", future, link)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPending, created.Status)
	assert.Equal(t, "member-1", created.OwnerID)

	posts, err := fx.sched.GetScheduledPosts(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, created.ID, posts[0].ID)
	assert.Equal(t, "hello world", posts[0].Content)
	assert.True(t, posts[0].ScheduledTime.Equal(future))
	require.NotNil(t, posts[0].Link)
	assert.Equal(t, link.URL, posts[0].Link.URL)

	// The credential must never appear in an API view.
	raw, err := json.Marshal(posts[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tok")
	assert.NotContains(t, string(raw), "access_token")
}

func TestScheduledPostsSortedByTime(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	later, err := fx.sched.SchedulePost(ctx, "tok", "later", time.Now().Add(2*time.Hour), nil)
	require.NoError(t, err)
	sooner, err := fx.sched.SchedulePost(ctx, "tok", "sooner", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	posts, err := fx.sched.GetScheduledPosts(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, sooner.ID, posts[0].ID)
	assert.Equal(t, later.ID, posts[1].ID)
}

func TestCancelScheduledPost(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.sched.SchedulePost(ctx, "tok", "hello", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	require.NoError(t, fx.sched.CancelScheduledPost(ctx, "tok", created.ID))

	posts, err := fx.sched.GetScheduledPosts(ctx, "tok")
	require.NoError(t, err)
	assert.Empty(t, posts)

	doc, err := fx.repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Posts, 1)
	assert.Equal(t, models.PostStatusCancelled, doc.Posts[0].Status)
	assert.NotNil(t, doc.Posts[0].CancelledAt)

	// Cancelling again is a state conflict, not a success.
	err = fx.sched.CancelScheduledPost(ctx, "tok", created.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestCancelAuthorization(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.sched.SchedulePost(ctx, "tok", "hello", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	err = fx.sched.CancelScheduledPost(ctx, "other-token", created.ID)
	assert.ErrorIs(t, err, models.ErrAuth)

	err = fx.sched.CancelScheduledPost(ctx, "tok", "no-such-id")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentCancelExactlyOneWins(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.sched.SchedulePost(ctx, "tok", "hello", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- fx.sched.CancelScheduledPost(ctx, "tok", created.ID)
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflict int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, models.ErrInvalidState):
			conflict++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)
}

func TestUpdateScheduledPost(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.sched.SchedulePost(ctx, "tok", "first draft", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	newTime := time.Now().Add(3 * time.Hour).Truncate(time.Second)
	updated, err := fx.sched.UpdateScheduledPost(ctx, "tok", created.ID, "final draft", newTime, &models.LinkAttachment{URL: "https://example.test"})
	require.NoError(t, err)
	assert.Equal(t, "final draft", updated.Content)
	assert.True(t, updated.ScheduledTime.Equal(newTime))
	assert.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, models.PostStatusPending, updated.Status)
}

func TestUpdateTerminalPostRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	doc := &repository.ScheduledPostDocument{Posts: []*models.ScheduledPost{{
		ID:            "p1",
		OwnerID:       "member-1",
		Content:       "already out",
		ScheduledTime: now.Add(-time.Hour),
		Status:        models.PostStatusPublished,
		CreatedAt:     now.Add(-2 * time.Hour),
		PublishedAt:   &now,
	}}}
	require.NoError(t, fx.repo.WriteAll(ctx, doc))

	_, err := fx.sched.UpdateScheduledPost(ctx, "tok", "p1", "rewrite", time.Now().Add(time.Hour), nil)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	reread, err := fx.repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "already out", reread.Posts[0].Content)
}

func TestSweepPublishesDuePost(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.sched.SchedulePost(ctx, "tok", "fire me", time.Now().Add(150*time.Millisecond), nil)
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	// Timer and sweep may race; the fire path must attempt exactly once.
	fx.sched.Sweep()
	fx.sched.Sweep()

	assert.Equal(t, 1, fx.gateway.calls())

	doc, err := fx.repo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Posts, 1)
	assert.Equal(t, models.PostStatusPublished, doc.Posts[0].Status)
	assert.Equal(t, "urn:li:share:1", doc.Posts[0].ExternalPostID)
	assert.NotNil(t, doc.Posts[0].PublishedAt)

	history, err := fx.historyRepo.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, history.Posts, 1)
	assert.Equal(t, "fire me", history.Posts[0].Content)
	assert.Equal(t, "scheduled", history.Posts[0].Metadata.Source)
	assert.Equal(t, created.OwnerID, history.Posts[0].OwnerID)
}

func TestFireWithExpiredCredential(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.sched.SchedulePost(ctx, "tok", "doomed", time.Now().Add(100*time.Millisecond), nil)
	require.NoError(t, err)

	fx.gateway.setVerifyValid(false)
	time.Sleep(200 * time.Millisecond)
	fx.sched.Sweep()

	failed, err := fx.sched.GetFailedPosts(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.PostStatusFailed, failed[0].Status)
	assert.Contains(t, failed[0].FailureReason, "invalid or expired")
	assert.NotNil(t, failed[0].FailedAt)

	assert.Equal(t, 0, fx.gateway.calls())

	history, err := fx.historyRepo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, history.Posts)
}

func TestFireWithGatewayRejection(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.gateway.publishErr = fmt.Errorf("%w: linkedin returned status 422", models.ErrPublish)

	_, err := fx.sched.SchedulePost(ctx, "tok", "rejected", time.Now().Add(100*time.Millisecond), nil)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	fx.sched.Sweep()

	failed, err := fx.sched.GetFailedPosts(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, strings.Contains(failed[0].FailureReason, "422"))

	// Terminal: no retry on a later sweep.
	fx.sched.Sweep()
	assert.Equal(t, 1, fx.gateway.calls())
}

func TestRestoreRebuildsFromStore(t *testing.T) {
	dir := t.TempDir()
	repo, err := repository.NewScheduledPostRepository(dir)
	require.NoError(t, err)
	historyRepo, err := repository.NewHistoryRepository(dir)
	require.NoError(t, err)

	gateway := newFakeGateway()
	cipher := utils.NewTokenCipher("test-secret")
	history := service.NewHistoryService(historyRepo, gateway)

	ctx := context.Background()
	storedToken, err := cipher.Encrypt("tok")
	require.NoError(t, err)

	// Simulate a process that died with one overdue pending post.
	require.NoError(t, repo.WriteAll(ctx, &repository.ScheduledPostDocument{Posts: []*models.ScheduledPost{{
		ID:            "survivor",
		OwnerID:       "member-1",
		Content:       "still here",
		ScheduledTime: time.Now().Add(-time.Minute),
		Status:        models.PostStatusPending,
		AccessToken:   storedToken,
		CreatedAt:     time.Now().Add(-time.Hour),
	}}}))

	sched := New(repo, history, gateway, cipher)
	t.Cleanup(sched.Stop)
	require.NoError(t, sched.Restore(ctx))

	// Overdue posts are clamped to the sweep, not fired at startup.
	assert.Equal(t, 0, gateway.calls())

	sched.Sweep()
	assert.Equal(t, 1, gateway.calls())

	doc, err := repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, doc.Posts[0].Status)
}

func TestTimerFiresWithoutSweep(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.sched.SchedulePost(ctx, "tok", "timed", time.Now().Add(120*time.Millisecond), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return fx.gateway.calls() == 1
	}, 2*time.Second, 20*time.Millisecond)

	doc, err := fx.repo.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, doc.Posts[0].Status)
}

func TestCancelledPostDoesNotFire(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.sched.SchedulePost(ctx, "tok", "never", time.Now().Add(150*time.Millisecond), nil)
	require.NoError(t, err)
	require.NoError(t, fx.sched.CancelScheduledPost(ctx, "tok", created.ID))

	time.Sleep(300 * time.Millisecond)
	fx.sched.Sweep()

	assert.Equal(t, 0, fx.gateway.calls())
}
