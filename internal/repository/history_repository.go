package repository

import (
	"context"

	"linkpost/internal/models"
)

const postsHistoryFile = "posts_history.json"

type HistoryDocument struct {
	Posts []*models.PublishedPost        `json:"posts"`
	Users map[string]*models.UserProfile `json:"users"`
}

// HistoryRepository is the durable store for published posts and their
// engagement stats.
type HistoryRepository interface {
	ReadAll(ctx context.Context) (*HistoryDocument, error)
	WriteAll(ctx context.Context, doc *HistoryDocument) error
}

type historyRepository struct {
	fs *fileStore
}

func NewHistoryRepository(dataDir string) (HistoryRepository, error) {
	fs, err := newFileStore(dataDir, postsHistoryFile)
	if err != nil {
		return nil, err
	}
	return &historyRepository{fs: fs}, nil
}

func (r *historyRepository) ReadAll(ctx context.Context) (*HistoryDocument, error) {
	doc := &HistoryDocument{}
	if err := r.fs.read(doc); err != nil {
		return nil, err
	}
	if doc.Posts == nil {
		doc.Posts = []*models.PublishedPost{}
	}
	if doc.Users == nil {
		doc.Users = map[string]*models.UserProfile{}
	}
	return doc, nil
}

func (r *historyRepository) WriteAll(ctx context.Context, doc *HistoryDocument) error {
	return r.fs.write(doc)
}
