package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"linkpost/internal/models"
	"linkpost/internal/repository"
	"linkpost/internal/transfer"
)

const (
	defaultHistoryPage  = 1
	defaultHistoryLimit = 10
)

// CurrentUser selects the owner resolved from the caller's token in
// history queries.
const CurrentUser = "current"

type HistoryService interface {
	AddPostToHistory(ctx context.Context, accessToken, postID, content string, metadata models.PostMetadata) (*models.PublishedPost, error)
	GetPostHistory(ctx context.Context, accessToken, userID string, page, limit int) (*transfer.PostHistoryResult, error)
	GetPostStats(ctx context.Context, postID string) (*transfer.PostStatsResult, error)
	UpdatePostStats(ctx context.Context, postID string, stats models.PostStats) (*models.PublishedPost, error)
}

type historyService struct {
	mu sync.Mutex // serializes read-modify-write on the history document
	hr repository.HistoryRepository
	ln LinkedInService
}

func NewHistoryService(hr repository.HistoryRepository, ln LinkedInService) HistoryService {
	return &historyService{hr: hr, ln: ln}
}

func (s *historyService) AddPostToHistory(ctx context.Context, accessToken, postID, content string, metadata models.PostMetadata) (*models.PublishedPost, error) {
	if postID == "" {
		err := errors.New("post id is empty")
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	profile, err := s.ln.GetProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post := &models.PublishedPost{
		ID:             postID,
		OwnerID:        profile.ID,
		Content:        content,
		CreatedAt:      now,
		Metadata:       metadata,
		Stats:          models.PostStats{},
		StatsUpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.hr.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	doc.Posts = append(doc.Posts, post)
	if _, ok := doc.Users[profile.ID]; !ok {
		doc.Users[profile.ID] = &models.UserProfile{
			ID:         profile.ID,
			Name:       strings.TrimSpace(profile.FirstName + " " + profile.LastName),
			ProfileURL: profileURL(profile.VanityName),
		}
	}

	if err := s.hr.WriteAll(ctx, doc); err != nil {
		return nil, err
	}

	return post, nil
}

func (s *historyService) GetPostHistory(ctx context.Context, accessToken, userID string, page, limit int) (*transfer.PostHistoryResult, error) {
	if userID == "" || userID == CurrentUser {
		profile, err := s.ln.GetProfile(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		userID = profile.ID
	}
	if page < 1 {
		page = defaultHistoryPage
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}

	doc, err := s.hr.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	var userPosts []*models.PublishedPost
	for _, post := range doc.Posts {
		if post.OwnerID == userID {
			userPosts = append(userPosts, post)
		}
	}

	// Most recent first.
	sort.Slice(userPosts, func(i, j int) bool {
		return userPosts[i].CreatedAt.After(userPosts[j].CreatedAt)
	})

	total := len(userPosts)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &transfer.PostHistoryResult{
		Posts: userPosts[start:end],
		Pagination: transfer.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *historyService) GetPostStats(ctx context.Context, postID string) (*transfer.PostStatsResult, error) {
	doc, err := s.hr.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, post := range doc.Posts {
		if post.ID == postID {
			return &transfer.PostStatsResult{
				PostID:      postID,
				Stats:       post.Stats,
				LastUpdated: post.StatsUpdatedAt,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: post %s", models.ErrNotFound, postID)
}

func (s *historyService) UpdatePostStats(ctx context.Context, postID string, stats models.PostStats) (*models.PublishedPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.hr.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, post := range doc.Posts {
		if post.ID == postID {
			post.Stats = stats
			post.StatsUpdatedAt = time.Now()
			if err := s.hr.WriteAll(ctx, doc); err != nil {
				return nil, err
			}
			return post, nil
		}
	}

	return nil, fmt.Errorf("%w: post %s", models.ErrNotFound, postID)
}

func profileURL(vanityName string) string {
	if vanityName == "" {
		return ""
	}
	return "https://www.linkedin.com/in/" + vanityName
}
