package domain

import (
	"context"
	"time"
)

// Store interfaces
type LotStore interface {
	CreateLot(ctx context.Context, lot *Lot) error
	GetLot(ctx context.Context, lotID string) (*Lot, error)
	GetLotsByAuction(ctx context.Context, auctionID string) ([]*Lot, error)
	UpdateLotStatus(ctx context.Context, lotID string, status LotStatus) error
	// CommitBid appends the bid and applies the lot price/leader update as one
	// transaction, conditional on lot.Version. Returns ErrVersionConflict when
	// the lot changed since the snapshot was read.
	CommitBid(ctx context.Context, lot *Lot, bid *Bid) error
}

type BidLedger interface {
	GetBidsForLot(ctx context.Context, lotID string) ([]*Bid, error)
	GetBidsForUser(ctx context.Context, userID string) ([]*Bid, error)
}

type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	UpdateAuctionStatus(ctx context.Context, auctionID string, status AuctionStatus) error
}

type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, auctionID, userID string) (*AuctionRegistration, error)
	IsRegistered(ctx context.Context, auctionID, userID string) (bool, error)
}

type JobRepository interface {
	CreateJob(ctx context.Context, job *ScheduledJob) error
	GetPendingJobs(ctx context.Context, before time.Time) ([]*ScheduledJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error
	CancelJobsForAuction(ctx context.Context, auctionID string) error
}

// Cache interfaces
type LotStateCache interface {
	SetLotState(ctx context.Context, lot *Lot) error
	// GetLotState returns (nil, nil) on a cache miss.
	GetLotState(ctx context.Context, lotID string) (*Lot, error)
	InvalidateLot(ctx context.Context, lotID string) error
}

// Event interfaces
type EventPublisher interface {
	PublishLotEvent(ctx context.Context, event *LotEvent) error
}

type EventSubscriber interface {
	SubscribeToLotEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *LotEvent) error

// LotLocker serializes bid placements per lot. Acquire blocks until the lot's
// section is free, the context is cancelled, or the locker's bounded wait
// elapses (ErrLotBusy). The returned release func must be called on every
// exit path.
type LotLocker interface {
	Acquire(ctx context.Context, lotID string) (release func(), err error)
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// Scheduler interface
type LifecycleScheduler interface {
	ScheduleAuctionOpen(ctx context.Context, auctionID string, openAt time.Time) error
	ScheduleAuctionClose(ctx context.Context, auctionID string, closeAt time.Time) error
	CancelSchedule(ctx context.Context, auctionID string) error
	Start(ctx context.Context) error
	Stop() error
}
