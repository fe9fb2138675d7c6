package ingestion

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/models"
)

// Scheduler triggers a sync of all configured sources on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	cfg     common.ScheduleConfig
	logger  arbor.ILogger
}

// NewScheduler creates the scheduler. It does nothing until Start is called.
func NewScheduler(service *Service, cfg common.ScheduleConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		cfg:     cfg,
		logger:  common.GetLogger(),
	}
}

// Start registers the cron entry and begins scheduling. A disabled
// schedule is a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Debug().Msg("Scheduled sync disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Cron, func() {
		jobID, err := s.service.StartSync(context.Background(), models.SyncRequest{})
		if err != nil {
			s.logger.Error().Err(err).Msg("Scheduled sync could not start")
			return
		}
		s.logger.Info().Str("job_id", jobID).Msg("Scheduled sync started")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule.cron expression %q: %w", s.cfg.Cron, err)
	}

	s.cron.Start()
	s.logger.Info().Str("cron", s.cfg.Cron).Msg("Scheduled sync enabled")
	return nil
}

// Stop stops scheduling. Already-running syncs continue.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
