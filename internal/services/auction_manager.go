package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// AuctionManager owns auction and lot lifecycle: listing, going live at the
// start time, and closing at the end time. Closing an auction settles its
// still-active lots: sold when a leader exists, unsold otherwise. It never
// touches lot price state directly.
type AuctionManager struct {
	auctions   domain.AuctionRepository
	lots       domain.LotStore
	stateCache domain.LotStateCache
	eventPub   domain.EventPublisher
	scheduler  domain.LifecycleScheduler
	log        logger.Logger
}

func NewAuctionManager(
	auctions domain.AuctionRepository,
	lots domain.LotStore,
	stateCache domain.LotStateCache,
	eventPub domain.EventPublisher,
	scheduler domain.LifecycleScheduler,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		auctions:   auctions,
		lots:       lots,
		stateCache: stateCache,
		eventPub:   eventPub,
		scheduler:  scheduler,
		log:        log,
	}
}

// SetScheduler breaks the manager/scheduler construction cycle: the scheduler
// executes lifecycle transitions through the manager, the manager books jobs
// through the scheduler.
func (m *AuctionManager) SetScheduler(scheduler domain.LifecycleScheduler) {
	m.scheduler = scheduler
}

func (m *AuctionManager) CreateAuction(ctx context.Context, title, sellerID string, startTime, endTime time.Time, settings domain.AuctionSettings) (*domain.Auction, error) {
	now := time.Now().UTC()
	auction := &domain.Auction{
		ID:        utils.GenerateID("auction"),
		Title:     title,
		SellerID:  sellerID,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    domain.AuctionUpcoming,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.auctions.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	if err := m.scheduler.ScheduleAuctionOpen(ctx, auction.ID, startTime); err != nil {
		return nil, fmt.Errorf("schedule auction open: %w", err)
	}
	if err := m.scheduler.ScheduleAuctionClose(ctx, auction.ID, endTime); err != nil {
		return nil, fmt.Errorf("schedule auction close: %w", err)
	}

	m.log.Info("auction created", "auction_id", auction.ID, "seller_id", sellerID,
		"start_time", startTime, "end_time", endTime)
	return auction, nil
}

// AddLot lists a lot in an auction. The lot opens at its starting bid with
// no leader.
func (m *AuctionManager) AddLot(ctx context.Context, auctionID string, lotNumber int, title string, startingBid, bidIncrement float64) (*domain.Lot, error) {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status == domain.AuctionEnded || auction.Status == domain.AuctionCancelled {
		return nil, fmt.Errorf("auction %s is %s: %w", auctionID, auction.Status, domain.ErrAuctionNotFound)
	}
	if lotNumber <= 0 {
		return nil, fmt.Errorf("lot number must be positive")
	}
	if startingBid < 0 || bidIncrement <= 0 {
		return nil, fmt.Errorf("starting bid must be non-negative and increment positive")
	}

	now := time.Now().UTC()
	endTime := auction.EndTime
	lot := &domain.Lot{
		ID:           utils.GenerateID("lot"),
		AuctionID:    auctionID,
		LotNumber:    lotNumber,
		Title:        title,
		StartingBid:  startingBid,
		CurrentBid:   startingBid,
		BidIncrement: bidIncrement,
		Status:       domain.LotActive,
		EndTime:      &endTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.lots.CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	if err := m.stateCache.SetLotState(ctx, lot); err != nil {
		m.log.Warn("failed to cache new lot", "lot_id", lot.ID, "error", err)
	}

	m.log.Info("lot listed", "lot_id", lot.ID, "auction_id", auctionID, "lot_number", lotNumber)
	return lot, nil
}

// OpenAuction transitions an upcoming auction to live.
func (m *AuctionManager) OpenAuction(ctx context.Context, auctionID string) error {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction.Status != domain.AuctionUpcoming {
		m.log.Warn("open skipped, auction not upcoming", "auction_id", auctionID, "status", auction.Status.String())
		return nil
	}

	if err := m.auctions.UpdateAuctionStatus(ctx, auctionID, domain.AuctionLive); err != nil {
		return fmt.Errorf("open auction %s: %w", auctionID, err)
	}

	event := &domain.LotEvent{
		Type:      domain.EventAuctionLive,
		AuctionID: auctionID,
		Timestamp: time.Now().UTC(),
	}
	if err := m.eventPub.PublishLotEvent(ctx, event); err != nil {
		m.log.Warn("failed to publish auction live event", "auction_id", auctionID, "error", err)
	}

	m.log.Info("auction live", "auction_id", auctionID)
	return nil
}

// CloseAuction ends a live auction and settles its active lots.
func (m *AuctionManager) CloseAuction(ctx context.Context, auctionID string) error {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return err
	}
	if auction.Status != domain.AuctionLive && auction.Status != domain.AuctionUpcoming {
		m.log.Warn("close skipped, auction already settled", "auction_id", auctionID, "status", auction.Status.String())
		return nil
	}

	if err := m.auctions.UpdateAuctionStatus(ctx, auctionID, domain.AuctionEnded); err != nil {
		return fmt.Errorf("close auction %s: %w", auctionID, err)
	}

	lots, err := m.lots.GetLotsByAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("list lots for auction %s: %w", auctionID, err)
	}

	for _, lot := range lots {
		if lot.Status != domain.LotActive {
			continue
		}
		if err := m.closeLot(ctx, lot); err != nil {
			m.log.Error("failed to close lot", "lot_id", lot.ID, "error", err)
		}
	}

	m.log.Info("auction closed", "auction_id", auctionID, "lots", len(lots))
	return nil
}

// CancelAuction withdraws an auction and its active lots and drops any
// pending lifecycle jobs.
func (m *AuctionManager) CancelAuction(ctx context.Context, auctionID string) error {
	if err := m.auctions.UpdateAuctionStatus(ctx, auctionID, domain.AuctionCancelled); err != nil {
		return fmt.Errorf("cancel auction %s: %w", auctionID, err)
	}
	if err := m.scheduler.CancelSchedule(ctx, auctionID); err != nil {
		m.log.Error("failed to cancel lifecycle jobs", "auction_id", auctionID, "error", err)
	}

	lots, err := m.lots.GetLotsByAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("list lots for auction %s: %w", auctionID, err)
	}
	for _, lot := range lots {
		if lot.Status != domain.LotActive {
			continue
		}
		if err := m.lots.UpdateLotStatus(ctx, lot.ID, domain.LotWithdrawn); err != nil {
			m.log.Error("failed to withdraw lot", "lot_id", lot.ID, "error", err)
			continue
		}
		if err := m.stateCache.InvalidateLot(ctx, lot.ID); err != nil {
			m.log.Warn("failed to invalidate lot cache", "lot_id", lot.ID, "error", err)
		}
	}

	m.log.Info("auction cancelled", "auction_id", auctionID)
	return nil
}

func (m *AuctionManager) closeLot(ctx context.Context, lot *domain.Lot) error {
	status := domain.LotUnsold
	if lot.HighestBidderID != "" {
		status = domain.LotSold
	}

	// The status update bumps the lot version, so a bid racing the close
	// loses its conditional commit instead of landing on a closed lot.
	if err := m.lots.UpdateLotStatus(ctx, lot.ID, status); err != nil {
		return err
	}

	if err := m.stateCache.InvalidateLot(ctx, lot.ID); err != nil {
		m.log.Warn("failed to invalidate lot cache", "lot_id", lot.ID, "error", err)
	}

	event := &domain.LotEvent{
		Type:      domain.EventLotClosed,
		LotID:     lot.ID,
		AuctionID: lot.AuctionID,
		UserID:    lot.HighestBidderID,
		Amount:    lot.CurrentBid,
		Timestamp: time.Now().UTC(),
	}
	if err := m.eventPub.PublishLotEvent(ctx, event); err != nil {
		m.log.Warn("failed to publish lot closed event", "lot_id", lot.ID, "error", err)
	}

	m.log.Info("lot closed", "lot_id", lot.ID, "status", status.String(),
		"final_bid", lot.CurrentBid, "winner_id", lot.HighestBidderID)
	return nil
}
