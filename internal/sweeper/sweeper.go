package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"
	"team_chat/internal/config"
	"team_chat/internal/domain"
	"team_chat/internal/storage"
	"team_chat/pkg/logger"
)

type Uploads interface {
	Create(ctx context.Context, upload *domain.Upload) error
	ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Upload, error)
	DeleteOrphan(ctx context.Context, storageID string) (bool, error)
}

type Objects interface {
	Remove(ctx context.Context, key string) error
}

type Counter interface {
	Add(float64)
}

// Sweeper удаляет загрузки, которые так и не прикрепили к сообщению
type Sweeper struct {
	uploads  Uploads
	objects  Objects
	schedule string
	grace    time.Duration
	batch    int
	swept    Counter
	log      logger.Logger
	now      func() time.Time
}

func New(uploads Uploads, objects Objects, cfg config.SweepConfig, swept Counter, log logger.Logger) *Sweeper {
	batch := cfg.Batch
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		uploads:  uploads,
		objects:  objects,
		schedule: cfg.Schedule,
		grace:    cfg.Grace,
		batch:    batch,
		swept:    swept,
		log:      log,
		now:      time.Now,
	}
}

// RunOnce проходит по сиротам пачками, пока они не закончатся
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	var (
		removed int
		freed   uint64
	)

	for {
		orphans, err := s.uploads.ListOrphans(ctx, cutoff, s.batch)
		if err != nil {
			return removed, fmt.Errorf("list orphans: %w", err)
		}
		if len(orphans) == 0 {
			break
		}

		progressed, skipped := 0, 0
		for _, u := range orphans {
			// строка уходит первой: прикрепленную после выборки загрузку не трогаем
			deleted, err := s.uploads.DeleteOrphan(ctx, u.StorageID)
			if err != nil {
				s.log.Warn("Failed to delete orphan upload", "storage_id", u.StorageID, "error", err)
				continue
			}
			if !deleted {
				skipped++
				continue
			}
			if err := s.objects.Remove(ctx, storage.ObjectKey(u.StorageID)); err != nil {
				s.log.Warn("Failed to remove orphan object", "storage_id", u.StorageID, "error", err)
				if err := s.uploads.Create(ctx, u); err != nil {
					s.log.Error("Failed to restore orphan upload", "storage_id", u.StorageID, "error", err)
				}
				continue
			}
			progressed++
			freed += uint64(u.Size)
		}
		removed += progressed

		// вся пачка упала: не крутимся на тех же строках
		if progressed+skipped == 0 || len(orphans) < s.batch {
			break
		}
	}

	if s.swept != nil && removed > 0 {
		s.swept.Add(float64(removed))
	}
	if removed > 0 {
		s.log.Info("Orphan uploads swept", "count", removed, "freed", humanize.Bytes(freed))
	}
	return removed, nil
}

// Start запускает планировщик в фоне. Возвращает ошибку при неверном cron.
func (s *Sweeper) Start(ctx context.Context) error {
	if !gronx.IsValid(s.schedule) {
		return fmt.Errorf("invalid sweep schedule: %q", s.schedule)
	}
	s.log.Info("Upload sweeper started", "schedule", s.schedule, "grace", s.grace.String())
	go s.loop(ctx)
	return nil
}

func (s *Sweeper) loop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(s.schedule, s.now().UTC(), false)
		if err != nil {
			s.log.Error("Failed to compute next sweep", "schedule", s.schedule, "error", err)
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.Error("Upload sweep failed", "error", err)
			}
		case <-ctx.Done():
			s.log.Info("Upload sweeper stopped")
			return
		}
	}
}
