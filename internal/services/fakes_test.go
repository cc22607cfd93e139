package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-marketplace/internal/domain"
)

// memoryStore is an in-memory LotStore + BidLedger with the same
// version-conditional commit semantics as the MySQL store.
type memoryStore struct {
	mu   sync.Mutex
	lots map[string]*domain.Lot
	bids []*domain.Bid // append order == acceptance order
}

func newMemoryStore() *memoryStore {
	return &memoryStore{lots: make(map[string]*domain.Lot)}
}

func (s *memoryStore) addLot(lot *domain.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lot
	s.lots[lot.ID] = &cp
}

func (s *memoryStore) CreateLot(ctx context.Context, lot *domain.Lot) error {
	s.addLot(lot)
	return nil
}

func (s *memoryStore) GetLot(ctx context.Context, lotID string) (*domain.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return nil, fmt.Errorf("lot %s: %w", lotID, domain.ErrLotNotFound)
	}
	cp := *lot
	return &cp, nil
}

func (s *memoryStore) GetLotsByAuction(ctx context.Context, auctionID string) ([]*domain.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lots []*domain.Lot
	for _, lot := range s.lots {
		if lot.AuctionID == auctionID {
			cp := *lot
			lots = append(lots, &cp)
		}
	}
	return lots, nil
}

func (s *memoryStore) UpdateLotStatus(ctx context.Context, lotID string, status domain.LotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return fmt.Errorf("lot %s: %w", lotID, domain.ErrLotNotFound)
	}
	lot.Status = status
	lot.Version++
	lot.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryStore) CommitBid(ctx context.Context, lot *domain.Lot, bid *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.lots[lot.ID]
	if !ok {
		return fmt.Errorf("lot %s: %w", lot.ID, domain.ErrLotNotFound)
	}
	if current.Version != lot.Version {
		return fmt.Errorf("lot %s at version %d: %w", lot.ID, lot.Version, domain.ErrVersionConflict)
	}

	current.CurrentBid = bid.Amount
	current.HighestBidderID = bid.UserID
	current.HighestBidderName = bid.UserName
	current.Version++
	current.UpdatedAt = bid.Timestamp

	cp := *bid
	s.bids = append(s.bids, &cp)
	return nil
}

func (s *memoryStore) GetBidsForLot(ctx context.Context, lotID string) ([]*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []*domain.Bid
	for i := len(s.bids) - 1; i >= 0; i-- {
		if s.bids[i].LotID == lotID {
			cp := *s.bids[i]
			bids = append(bids, &cp)
		}
	}
	return bids, nil
}

func (s *memoryStore) GetBidsForUser(ctx context.Context, userID string) ([]*domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []*domain.Bid
	for i := len(s.bids) - 1; i >= 0; i-- {
		if s.bids[i].UserID == userID {
			cp := *s.bids[i]
			bids = append(bids, &cp)
		}
	}
	return bids, nil
}

// acceptedBids returns the lot's bids in acceptance order.
func (s *memoryStore) acceptedBids(lotID string) []*domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []*domain.Bid
	for _, b := range s.bids {
		if b.LotID == lotID {
			cp := *b
			bids = append(bids, &cp)
		}
	}
	return bids
}

type memoryAuctionRepo struct {
	mu       sync.Mutex
	auctions map[string]*domain.Auction
}

func newMemoryAuctionRepo() *memoryAuctionRepo {
	return &memoryAuctionRepo{auctions: make(map[string]*domain.Auction)}
}

func (r *memoryAuctionRepo) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *auction
	r.auctions[auction.ID] = &cp
	return nil
}

func (r *memoryAuctionRepo) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	cp := *auction
	return &cp, nil
}

func (r *memoryAuctionRepo) UpdateAuctionStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrAuctionNotFound)
	}
	auction.Status = status
	auction.UpdatedAt = time.Now().UTC()
	return nil
}

type memoryRegistrationRepo struct {
	mu         sync.Mutex
	registered map[string]bool
}

func newMemoryRegistrationRepo() *memoryRegistrationRepo {
	return &memoryRegistrationRepo{registered: make(map[string]bool)}
}

func regKey(auctionID, userID string) string {
	return auctionID + "/" + userID
}

func (r *memoryRegistrationRepo) CreateRegistration(ctx context.Context, auctionID, userID string) (*domain.AuctionRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[regKey(auctionID, userID)] = true
	return &domain.AuctionRegistration{AuctionID: auctionID, UserID: userID, CreatedAt: time.Now().UTC()}, nil
}

func (r *memoryRegistrationRepo) IsRegistered(ctx context.Context, auctionID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered[regKey(auctionID, userID)], nil
}

type memoryLotCache struct {
	mu   sync.Mutex
	lots map[string]*domain.Lot
}

func newMemoryLotCache() *memoryLotCache {
	return &memoryLotCache{lots: make(map[string]*domain.Lot)}
}

func (c *memoryLotCache) SetLotState(ctx context.Context, lot *domain.Lot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *lot
	c.lots[lot.ID] = &cp
	return nil
}

func (c *memoryLotCache) GetLotState(ctx context.Context, lotID string) (*domain.Lot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lot, ok := c.lots[lotID]
	if !ok {
		return nil, nil
	}
	cp := *lot
	return &cp, nil
}

func (c *memoryLotCache) InvalidateLot(ctx context.Context, lotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lots, lotID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.LotEvent
}

func (p *recordingPublisher) PublishLotEvent(ctx context.Context, event *domain.LotEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *event
	p.events = append(p.events, &cp)
	return nil
}

func (p *recordingPublisher) eventsOfType(t domain.LotEventType) []*domain.LotEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*domain.LotEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingScheduler struct {
	mu        sync.Mutex
	opens     map[string]time.Time
	closes    map[string]time.Time
	cancelled []string
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{
		opens:  make(map[string]time.Time),
		closes: make(map[string]time.Time),
	}
}

func (s *recordingScheduler) ScheduleAuctionOpen(ctx context.Context, auctionID string, openAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens[auctionID] = openAt
	return nil
}

func (s *recordingScheduler) ScheduleAuctionClose(ctx context.Context, auctionID string, closeAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes[auctionID] = closeAt
	return nil
}

func (s *recordingScheduler) CancelSchedule(ctx context.Context, auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, auctionID)
	return nil
}

func (s *recordingScheduler) Start(ctx context.Context) error { return nil }
func (s *recordingScheduler) Stop() error                     { return nil }
