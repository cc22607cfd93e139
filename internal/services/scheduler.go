package services

import (
	"context"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CronLifecycleScheduler persists lifecycle jobs and polls them on a cron
// tick. Jobs execute only on the instance currently holding leadership, so a
// multi-instance deployment transitions each auction exactly once.
type CronLifecycleScheduler struct {
	cron       *cron.Cron
	repo       domain.JobRepository
	auctionMgr *AuctionManager
	leader     domain.LeaderElection
	instanceID string
	log        logger.Logger
}

func NewCronLifecycleScheduler(repo domain.JobRepository, auctionMgr *AuctionManager,
	leader domain.LeaderElection, instanceID string, log logger.Logger) *CronLifecycleScheduler {
	return &CronLifecycleScheduler{
		cron:       cron.New(cron.WithSeconds()),
		repo:       repo,
		auctionMgr: auctionMgr,
		leader:     leader,
		instanceID: instanceID,
		log:        log,
	}
}

func (s *CronLifecycleScheduler) Start(ctx context.Context) error {
	s.log.Info("starting lifecycle scheduler")

	_, err := s.cron.AddFunc("@every 30s", func() {
		s.processPendingJobs(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CronLifecycleScheduler) Stop() error {
	s.log.Info("stopping lifecycle scheduler")
	s.cron.Stop()
	return nil
}

func (s *CronLifecycleScheduler) ScheduleAuctionOpen(ctx context.Context, auctionID string, openAt time.Time) error {
	return s.repo.CreateJob(ctx, &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auctionID,
		JobType:   domain.JobOpenAuction,
		RunAt:     openAt,
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *CronLifecycleScheduler) ScheduleAuctionClose(ctx context.Context, auctionID string, closeAt time.Time) error {
	return s.repo.CreateJob(ctx, &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auctionID,
		JobType:   domain.JobCloseAuction,
		RunAt:     closeAt,
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *CronLifecycleScheduler) CancelSchedule(ctx context.Context, auctionID string) error {
	return s.repo.CancelJobsForAuction(ctx, auctionID)
}

func (s *CronLifecycleScheduler) processPendingJobs(ctx context.Context) {
	isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Error("leadership check failed", "error", err)
		return
	}
	if !isLeader {
		return
	}

	jobs, err := s.repo.GetPendingJobs(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to fetch pending jobs", "error", err)
		return
	}

	for _, job := range jobs {
		s.log.Info("processing lifecycle job", "job_id", job.ID, "type", job.JobType, "auction_id", job.AuctionID)

		var err error
		switch job.JobType {
		case domain.JobOpenAuction:
			err = s.auctionMgr.OpenAuction(ctx, job.AuctionID)
		case domain.JobCloseAuction:
			err = s.auctionMgr.CloseAuction(ctx, job.AuctionID)
		}

		if err != nil {
			// Left pending; the next tick retries it.
			s.log.Error("lifecycle job failed", "job_id", job.ID, "error", err)
			continue
		}

		if err := s.repo.UpdateJobStatus(ctx, job.ID, domain.JobExecuted); err != nil {
			s.log.Error("failed to mark job executed", "job_id", job.ID, "error", err)
		}
	}
}
