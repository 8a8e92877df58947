package repository

import (
	"context"

	"linkpost/internal/models"
)

const scheduledPostsFile = "scheduled_posts.json"

type ScheduledPostDocument struct {
	Posts []*models.ScheduledPost `json:"posts"`
}

// ScheduledPostRepository is the durable store for scheduled posts. The
// document on disk is the single source of truth for post lifecycle state;
// in-memory timers are only a cache rebuilt from it.
type ScheduledPostRepository interface {
	ReadAll(ctx context.Context) (*ScheduledPostDocument, error)
	WriteAll(ctx context.Context, doc *ScheduledPostDocument) error
}

type scheduledPostRepository struct {
	fs *fileStore
}

func NewScheduledPostRepository(dataDir string) (ScheduledPostRepository, error) {
	fs, err := newFileStore(dataDir, scheduledPostsFile)
	if err != nil {
		return nil, err
	}
	return &scheduledPostRepository{fs: fs}, nil
}

func (r *scheduledPostRepository) ReadAll(ctx context.Context) (*ScheduledPostDocument, error) {
	doc := &ScheduledPostDocument{}
	if err := r.fs.read(doc); err != nil {
		return nil, err
	}
	if doc.Posts == nil {
		doc.Posts = []*models.ScheduledPost{}
	}
	return doc, nil
}

func (r *scheduledPostRepository) WriteAll(ctx context.Context, doc *ScheduledPostDocument) error {
	return r.fs.write(doc)
}
