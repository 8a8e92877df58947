package job

import (
	"context"
	"log/slog"
	"time"

	config "linkpost/configs"
	"linkpost/internal/repository"
	"linkpost/internal/service"
)

// Stats older than this are refreshed on the next run.
const statsMaxAge = 24 * time.Hour

// StatsRefreshJob refreshes engagement metrics for published posts. It runs
// outside the scheduler's lifecycle and only touches the history document.
type StatsRefreshJob struct {
	cfg config.Config
	hr  repository.HistoryRepository
	hs  service.HistoryService
	ln  service.LinkedInService
}

func NewStatsRefreshJob(cfg config.Config, hr repository.HistoryRepository, hs service.HistoryService, ln service.LinkedInService) *StatsRefreshJob {
	return &StatsRefreshJob{
		cfg: cfg,
		hr:  hr,
		hs:  hs,
		ln:  ln,
	}
}

func (j *StatsRefreshJob) RefreshStats() {
	if j.cfg.StatsAccessToken == "" {
		// No application token configured; metrics stay as recorded.
		return
	}

	ctx := context.Background()

	doc, err := j.hr.ReadAll(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	cutoff := time.Now().Add(-statsMaxAge)
	for _, post := range doc.Posts {
		if post.StatsUpdatedAt.After(cutoff) {
			continue
		}

		stats, err := j.ln.GetSocialActions(ctx, j.cfg.StatsAccessToken, post.ID)
		if err != nil {
			slog.Info("Unable to refresh stats for post " + post.ID)
			continue
		}

		if _, err := j.hs.UpdatePostStats(ctx, post.ID, *stats); err != nil {
			slog.Info(err.Error())
		}
	}
}
