package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// BidService is the single write path for lot price/leader state. Placement
// runs inside the lot's exclusive section: re-fetch the authoritative
// snapshot, validate, then commit the bid row and the lot update as one
// transaction. A version conflict on commit (another instance won the race)
// re-fetches and re-validates, up to maxCommitAttempts.
type BidService struct {
	lots              domain.LotStore
	ledger            domain.BidLedger
	auctions          domain.AuctionRepository
	registrations     domain.RegistrationRepository
	locker            domain.LotLocker
	stateCache        domain.LotStateCache
	eventPub          domain.EventPublisher
	maxCommitAttempts int
	log               logger.Logger
}

func NewBidService(
	lots domain.LotStore,
	ledger domain.BidLedger,
	auctions domain.AuctionRepository,
	registrations domain.RegistrationRepository,
	locker domain.LotLocker,
	stateCache domain.LotStateCache,
	eventPub domain.EventPublisher,
	maxCommitAttempts int,
	log logger.Logger,
) *BidService {
	if maxCommitAttempts < 1 {
		maxCommitAttempts = 1
	}
	return &BidService{
		lots:              lots,
		ledger:            ledger,
		auctions:          auctions,
		registrations:     registrations,
		locker:            locker,
		stateCache:        stateCache,
		eventPub:          eventPub,
		maxCommitAttempts: maxCommitAttempts,
		log:               log,
	}
}

func reject(rej *domain.Rejection) *domain.BidOutcome {
	return &domain.BidOutcome{Rejection: rej}
}

// PlaceBid validates and records one bid. The returned outcome is total for
// business conditions; the error return is reserved for infrastructure
// faults, which never leave partial state behind.
func (s *BidService) PlaceBid(ctx context.Context, lotID, userID, userName string, amount float64) (*domain.BidOutcome, error) {
	s.log.Info("placing bid", "lot_id", lotID, "user_id", userID, "amount", amount)

	req := BidRequest{LotID: lotID, UserID: userID, UserName: userName, Amount: amount}

	// Existence check outside the lock; authoritative state is re-read inside.
	lot, err := s.lots.GetLot(ctx, lotID)
	if errors.Is(err, domain.ErrLotNotFound) {
		return reject(domain.NewRejection(domain.RejectLotNotBiddable, "lot does not exist")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch lot %s: %w", lotID, err)
	}

	auction, err := s.auctions.GetAuction(ctx, lot.AuctionID)
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return reject(domain.NewRejection(domain.RejectLotNotBiddable, "auction does not exist")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch auction %s: %w", lot.AuctionID, err)
	}

	registered := true
	if auction.Settings.RequireRegistrationToBid {
		registered, err = s.registrations.IsRegistered(ctx, auction.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("check registration: %w", err)
		}
	}

	release, err := s.locker.Acquire(ctx, lotID)
	if errors.Is(err, domain.ErrLotBusy) {
		s.log.Warn("lot section busy", "lot_id", lotID, "user_id", userID)
		return reject(domain.NewRejection(domain.RejectBusy, "lot is receiving bids, retry shortly")), nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lot section %s: %w", lotID, err)
	}
	defer release()

	for attempt := 1; attempt <= s.maxCommitAttempts; attempt++ {
		fresh, err := s.lots.GetLot(ctx, lotID)
		if errors.Is(err, domain.ErrLotNotFound) {
			return reject(domain.NewRejection(domain.RejectLotNotBiddable, "lot does not exist")), nil
		}
		if err != nil {
			return nil, fmt.Errorf("fetch lot %s: %w", lotID, err)
		}

		if rej := ValidateBid(req, fresh, auction, registered); rej != nil {
			s.log.Info("bid rejected", "lot_id", lotID, "user_id", userID, "reason", rej.Reason)
			return reject(rej), nil
		}

		bid := &domain.Bid{
			ID:        utils.GenerateID("bid"),
			LotID:     lotID,
			UserID:    userID,
			UserName:  userName,
			Amount:    amount,
			Timestamp: time.Now().UTC(),
		}

		err = s.lots.CommitBid(ctx, fresh, bid)
		if errors.Is(err, domain.ErrVersionConflict) {
			s.log.Warn("lot changed under bid, retrying", "lot_id", lotID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("commit bid on lot %s: %w", lotID, err)
		}

		s.afterAccept(ctx, fresh, bid)

		s.log.Info("bid accepted", "lot_id", lotID, "user_id", userID, "amount", amount, "bid_id", bid.ID)
		return &domain.BidOutcome{Accepted: true, Bid: bid}, nil
	}

	s.log.Warn("bid commit attempts exhausted", "lot_id", lotID, "user_id", userID)
	return reject(domain.NewRejection(domain.RejectConflict, "lot state kept changing, retry the bid")), nil
}

// afterAccept refreshes the lot snapshot cache and announces the bid. Both
// are best effort; the commit already happened and readers fall back to the
// store on a stale or missing cache entry.
func (s *BidService) afterAccept(ctx context.Context, lot *domain.Lot, bid *domain.Bid) {
	updated := *lot
	updated.CurrentBid = bid.Amount
	updated.HighestBidderID = bid.UserID
	updated.HighestBidderName = bid.UserName
	updated.Version = lot.Version + 1
	updated.UpdatedAt = bid.Timestamp

	if err := s.stateCache.SetLotState(ctx, &updated); err != nil {
		s.log.Warn("failed to refresh lot cache", "lot_id", lot.ID, "error", err)
	}

	event := &domain.LotEvent{
		Type:      domain.EventBidAccepted,
		LotID:     lot.ID,
		AuctionID: lot.AuctionID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
		Timestamp: bid.Timestamp,
	}
	if err := s.eventPub.PublishLotEvent(ctx, event); err != nil {
		s.log.Warn("failed to publish bid event", "lot_id", lot.ID, "error", err)
	}
}

// GetBidsForLot returns the lot's accepted bids, most recent first.
func (s *BidService) GetBidsForLot(ctx context.Context, lotID string) ([]*domain.Bid, error) {
	if lotID == "" {
		return nil, fmt.Errorf("get bids: %w", domain.ErrLotNotFound)
	}
	bids, err := s.ledger.GetBidsForLot(ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("get bids for lot %s: %w", lotID, err)
	}
	return bids, nil
}

// GetBidsForUser returns the user's accepted bids across lots, most recent first.
func (s *BidService) GetBidsForUser(ctx context.Context, userID string) ([]*domain.Bid, error) {
	bids, err := s.ledger.GetBidsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get bids for user %s: %w", userID, err)
	}
	return bids, nil
}

// GetLotState returns a lot snapshot for display. Served from the redis
// snapshot cache when present; cache readers may observe slightly stale
// state, which is acceptable for catalog reads.
func (s *BidService) GetLotState(ctx context.Context, lotID string) (*domain.Lot, error) {
	cached, err := s.stateCache.GetLotState(ctx, lotID)
	if err != nil {
		s.log.Warn("lot cache read failed", "lot_id", lotID, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	lot, err := s.lots.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if err := s.stateCache.SetLotState(ctx, lot); err != nil {
		s.log.Warn("failed to populate lot cache", "lot_id", lotID, "error", err)
	}
	return lot, nil
}
