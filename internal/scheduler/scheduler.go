package scheduler

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"linkpost/internal/models"
	"linkpost/internal/repository"
	"linkpost/internal/service"
	"linkpost/internal/transfer"
	"linkpost/pkg/utils"
)

// Scheduler owns the lifecycle of scheduled posts. The durable store is the
// single source of truth; the timer map is only a low-latency cache and is
// rebuilt from the store on startup. The periodic Sweep is the correctness
// mechanism that catches everything the timers miss.
type Scheduler struct {
	repo    repository.ScheduledPostRepository
	history service.HistoryService
	ln      service.LinkedInService
	cipher  *utils.TokenCipher

	// mu serializes every read-modify-write on the scheduled-posts
	// document, including the whole fire path. A racing cancel or a
	// second fire waits here and then observes the terminal state.
	mu sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	now func() time.Time
}

func New(repo repository.ScheduledPostRepository, history service.HistoryService, ln service.LinkedInService, cipher *utils.TokenCipher) *Scheduler {
	return &Scheduler{
		repo:    repo,
		history: history,
		ln:      ln,
		cipher:  cipher,
		timers:  make(map[string]*time.Timer),
		now:     time.Now,
	}
}

// SchedulePost validates the request, persists a pending record and arms a
// fire timer. The returned view never carries the stored credential.
func (s *Scheduler) SchedulePost(ctx context.Context, accessToken, content string, scheduledTime time.Time, link *models.LinkAttachment) (*transfer.ScheduledPostView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is empty", models.ErrValidation)
	}
	now := s.now()
	if !scheduledTime.After(now) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", models.ErrValidation)
	}

	valid, err := s.ln.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: linkedin token invalid or expired", models.ErrAuth)
	}

	profile, err := s.ln.GetProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	storedToken, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, err
	}

	post := &models.ScheduledPost{
		ID:            id,
		OwnerID:       profile.ID,
		Content:       content,
		ScheduledTime: scheduledTime,
		Status:        models.PostStatusPending,
		Link:          link,
		AccessToken:   storedToken,
		CreatedAt:     now,
	}

	s.mu.Lock()
	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	doc.Posts = append(doc.Posts, post)
	if err := s.repo.WriteAll(ctx, doc); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.armTimer(post.ID, scheduledTime.Sub(s.now()))

	return transfer.NewScheduledPostView(post), nil
}

// GetScheduledPosts returns the caller's pending posts, soonest first.
func (s *Scheduler) GetScheduledPosts(ctx context.Context, accessToken string) ([]*transfer.ScheduledPostView, error) {
	return s.listByStatus(ctx, accessToken, models.PostStatusPending)
}

// GetFailedPosts exposes terminal failures and their reasons; fire-path
// errors are never returned to a live caller, so this is where they surface.
func (s *Scheduler) GetFailedPosts(ctx context.Context, accessToken string) ([]*transfer.ScheduledPostView, error) {
	return s.listByStatus(ctx, accessToken, models.PostStatusFailed)
}

func (s *Scheduler) listByStatus(ctx context.Context, accessToken, status string) ([]*transfer.ScheduledPostView, error) {
	profile, err := s.ln.GetProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	views := []*transfer.ScheduledPostView{}
	for _, post := range doc.Posts {
		if post.OwnerID == profile.ID && post.Status == status {
			views = append(views, transfer.NewScheduledPostView(post))
		}
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].ScheduledTime.Before(views[j].ScheduledTime)
	})

	return views, nil
}

func (s *Scheduler) CancelScheduledPost(ctx context.Context, accessToken, postID string) error {
	profile, err := s.ln.GetProfile(ctx, accessToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		return err
	}

	post := findPost(doc, postID)
	if post == nil {
		return fmt.Errorf("%w: scheduled post %s", models.ErrNotFound, postID)
	}
	if post.OwnerID != profile.ID {
		return fmt.Errorf("%w: post belongs to another account", models.ErrAuth)
	}
	if post.Terminal() {
		return fmt.Errorf("%w: post is %s", models.ErrInvalidState, post.Status)
	}

	now := s.now()
	post.Status = models.PostStatusCancelled
	post.CancelledAt = &now
	post.UpdatedAt = &now

	if err := s.repo.WriteAll(ctx, doc); err != nil {
		return err
	}

	// Best effort; a stray timer that still fires will observe the
	// cancelled status and no-op.
	s.disarmTimer(postID)

	return nil
}

// UpdateScheduledPost overwrites content, time and link of a pending post
// and refreshes the stored credential, since the one captured at schedule
// time may have expired.
func (s *Scheduler) UpdateScheduledPost(ctx context.Context, accessToken, postID, content string, scheduledTime time.Time, link *models.LinkAttachment) (*transfer.ScheduledPostView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is empty", models.ErrValidation)
	}
	if !scheduledTime.After(s.now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", models.ErrValidation)
	}

	profile, err := s.ln.GetProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	storedToken, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	post := findPost(doc, postID)
	if post == nil {
		return nil, fmt.Errorf("%w: scheduled post %s", models.ErrNotFound, postID)
	}
	if post.OwnerID != profile.ID {
		return nil, fmt.Errorf("%w: post belongs to another account", models.ErrAuth)
	}
	if post.Terminal() {
		return nil, fmt.Errorf("%w: post is %s", models.ErrInvalidState, post.Status)
	}

	now := s.now()
	post.Content = content
	post.ScheduledTime = scheduledTime
	post.Link = link
	post.AccessToken = storedToken
	post.UpdatedAt = &now

	if err := s.repo.WriteAll(ctx, doc); err != nil {
		return nil, err
	}

	s.disarmTimer(postID)
	s.armTimer(postID, scheduledTime.Sub(now))

	return transfer.NewScheduledPostView(post), nil
}

// Restore rebuilds timers from the store after a restart. Overdue records
// are left to the next sweep instead of firing with zero delay, so a
// restart cannot stampede the gateway.
func (s *Scheduler) Restore(ctx context.Context) error {
	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		return err
	}

	pending := 0
	now := s.now()
	for _, post := range doc.Posts {
		if post.Status != models.PostStatusPending {
			continue
		}
		pending++
		if post.ScheduledTime.After(now) {
			s.armTimer(post.ID, post.ScheduledTime.Sub(now))
		} else {
			log.Printf("post %s is overdue, it will fire on the next sweep", post.ID)
		}
	}

	log.Printf("scheduler restored with %d pending posts", pending)
	return nil
}

// Sweep fires every pending post whose time has passed. Timers are only an
// optimization; this pass is what guarantees a post is never lost. The fire
// path's reload-and-check keeps a timer/sweep race down to one attempt.
func (s *Scheduler) Sweep() {
	ctx := context.Background()

	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		slog.Error(err.Error())
		return
	}

	now := s.now()
	for _, post := range doc.Posts {
		if post.Status == models.PostStatusPending && !post.ScheduledTime.After(now) {
			s.fire(ctx, post.ID)
		}
	}
}

// Stop disarms all timers. Pending posts stay in the store and fire after
// the next Restore.
func (s *Scheduler) Stop() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// fire attempts to publish one post. The store lock is held for the whole
// attempt: the record is reloaded fresh and re-checked so a post that was
// cancelled, updated or already fired in the meantime is not published
// twice. Failures are terminal; the reason lands on the record, not on any
// live caller.
func (s *Scheduler) fire(ctx context.Context, postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.disarmTimer(postID)

	doc, err := s.repo.ReadAll(ctx)
	if err != nil {
		slog.Error(err.Error())
		return
	}

	post := findPost(doc, postID)
	if post == nil {
		slog.Info(fmt.Sprintf("scheduled post not found: %s", postID))
		return
	}
	if post.Status != models.PostStatusPending {
		slog.Info(fmt.Sprintf("post %s is no longer pending (%s)", postID, post.Status))
		return
	}

	accessToken, err := s.cipher.Decrypt(post.AccessToken)
	if err != nil {
		s.markFailed(ctx, doc, post, "stored credential could not be decrypted")
		return
	}

	valid, err := s.ln.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		s.markFailed(ctx, doc, post, fmt.Sprintf("credential check failed: %v", err))
		return
	}
	if !valid {
		// A stale credential cannot heal itself without the user
		// re-authorizing, so there is nothing to retry.
		s.markFailed(ctx, doc, post, "linkedin token invalid or expired")
		return
	}

	externalID, err := s.ln.PublishPost(ctx, accessToken, post.Content, post.Link)
	if err != nil {
		s.markFailed(ctx, doc, post, err.Error())
		return
	}

	now := s.now()
	post.Status = models.PostStatusPublished
	post.PublishedAt = &now
	post.UpdatedAt = &now
	post.ExternalPostID = externalID

	if err := s.repo.WriteAll(ctx, doc); err != nil {
		slog.Error(err.Error())
		return
	}

	if _, err := s.history.AddPostToHistory(ctx, accessToken, externalID, post.Content, models.PostMetadata{Source: "scheduled"}); err != nil {
		slog.Error(fmt.Sprintf("recording history for post %s: %v", postID, err))
	}

	log.Printf("scheduled post %s published as %s", postID, externalID)
}

func (s *Scheduler) markFailed(ctx context.Context, doc *repository.ScheduledPostDocument, post *models.ScheduledPost, reason string) {
	now := s.now()
	post.Status = models.PostStatusFailed
	post.FailedAt = &now
	post.UpdatedAt = &now
	post.FailureReason = reason

	if err := s.repo.WriteAll(ctx, doc); err != nil {
		slog.Error(err.Error())
		return
	}
	slog.Info(fmt.Sprintf("scheduled post %s failed: %s", post.ID, reason))
}

func (s *Scheduler) armTimer(postID string, delay time.Duration) {
	if delay <= 0 {
		// Overdue posts belong to the sweep.
		return
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[postID]; ok {
		t.Stop()
	}
	s.timers[postID] = time.AfterFunc(delay, func() {
		s.fire(context.Background(), postID)
	})
}

func (s *Scheduler) disarmTimer(postID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[postID]; ok {
		t.Stop()
		delete(s.timers, postID)
	}
}

func findPost(doc *repository.ScheduledPostDocument, postID string) *models.ScheduledPost {
	for _, post := range doc.Posts {
		if post.ID == postID {
			return post
		}
	}
	return nil
}
