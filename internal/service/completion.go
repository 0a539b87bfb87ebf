package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cleaning-duty/internal/core/schedule"
	"cleaning-duty/internal/model"

	"gorm.io/gorm"
)

type CompleteRequest struct {
	ScheduleID string
	ActorID    string
	Notes      string
}

type CompletionService struct {
	db      *gorm.DB
	catalog *CatalogSync
	now     func() time.Time
	log     *slog.Logger
}

func NewCompletionService(db *gorm.DB, catalog *CatalogSync, log *slog.Logger) *CompletionService {
	return &CompletionService{db: db, catalog: catalog, now: time.Now, log: log}
}

// Complete records that the actor finished their own schedule entry. A
// second call for the same entry returns the existing record with
// created=false.
func (s *CompletionService) Complete(ctx context.Context, req CompleteRequest) (*model.Completion, bool, error) {
	db := s.db.WithContext(ctx)

	var entry model.Schedule
	if err := db.Where("id = ?", req.ScheduleID).First(&entry).Error; err != nil {
		if isNotFound(err) {
			return nil, false, fmt.Errorf("schedule %s: %w", req.ScheduleID, ErrNotFound)
		}
		return nil, false, fmt.Errorf("load schedule: %w", err)
	}

	var actor model.Member
	if err := db.Where("id = ?", req.ActorID).First(&actor).Error; err != nil && !isNotFound(err) {
		return nil, false, fmt.Errorf("load member: %w", err)
	}
	g := schedule.CanComplete(schedule.CompleteContext{
		ScheduleID:  entry.ID,
		AssigneeID:  entry.MemberID,
		ActorID:     actor.ID,
		ActorActive: actor.IsActive,
	})
	if !g.Allowed {
		s.log.Warn("completion.forbidden", "schedule", entry.ID, "actor", req.ActorID, "reason", g.Reason)
		return nil, false, fmt.Errorf("%s: %w", g.Reason, ErrForbidden)
	}

	var existing model.Completion
	err := db.Where("schedule_id = ?", entry.ID).Order("completed_at, id").First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !isNotFound(err) {
		return nil, false, fmt.Errorf("load completion: %w", err)
	}

	c := model.Completion{
		ScheduleID:  entry.ID,
		CompletedBy: actor.ID,
		CompletedAt: s.now(),
	}
	if req.Notes != "" {
		notes := req.Notes
		c.Notes = &notes
	}
	if err := db.Create(&c).Error; err != nil {
		return nil, false, fmt.Errorf("insert completion: %w", err)
	}
	s.log.Info("completion.ok", "schedule", entry.ID, "member", actor.ID)

	if s.catalog != nil {
		go s.catalog.SyncCompletion(context.WithoutCancel(ctx), c)
	}
	return &c, true, nil
}
