package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/stretchr/testify/require"
)

type bidFixture struct {
	store    *memoryStore
	auctions *memoryAuctionRepo
	regs     *memoryRegistrationRepo
	cache    *memoryLotCache
	pub      *recordingPublisher
	locker   *KeyedLotLocker
	svc      *BidService
}

func newBidFixture(t *testing.T, lot *domain.Lot, auction *domain.Auction) *bidFixture {
	t.Helper()

	f := &bidFixture{
		store:    newMemoryStore(),
		auctions: newMemoryAuctionRepo(),
		regs:     newMemoryRegistrationRepo(),
		cache:    newMemoryLotCache(),
		pub:      &recordingPublisher{},
		locker:   NewKeyedLotLocker(2 * time.Second),
	}
	if lot != nil {
		f.store.addLot(lot)
	}
	if auction != nil {
		require.NoError(t, f.auctions.CreateAuction(context.Background(), auction))
	}
	f.svc = NewBidService(f.store, f.store, f.auctions, f.regs, f.locker, f.cache, f.pub, 5, logger.NewNop())
	return f
}

func TestBidService_PlaceBid_Sequence(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())

	// Lot starts at 100 with increment 10.
	out, err := f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.True(t, out.Accepted)
	require.Equal(t, 115.0, out.Bid.Amount)

	out, err = f.svc.PlaceBid(ctx, "lot1", "userB", "Bob", 130)
	require.NoError(t, err)
	require.True(t, out.Accepted)

	// Minimum is now 130 + 10; an equal-to-current bid is too low.
	out, err = f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 130)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectBidTooLow, out.Rejection.Reason)
	require.Equal(t, 140.0, out.Rejection.MinimumAcceptable)

	out, err = f.svc.PlaceBid(ctx, "lot1", "seller1", "Seller", 200)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectSellerCannotBid, out.Rejection.Reason)

	// Highest bidder cannot outbid themselves.
	out, err = f.svc.PlaceBid(ctx, "lot1", "userB", "Bob", 200)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectAlreadyHighestBidder, out.Rejection.Reason)

	lot, err := f.store.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, 130.0, lot.CurrentBid)
	require.Equal(t, "userB", lot.HighestBidderID)
	require.Len(t, f.store.acceptedBids("lot1"), 2)
}

func TestBidService_PlaceBid_RejectionLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())

	before, err := f.store.GetLot(ctx, "lot1")
	require.NoError(t, err)

	out, err := f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 105)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectBidTooLow, out.Rejection.Reason)
	require.Equal(t, 110.0, out.Rejection.MinimumAcceptable)

	after, err := f.store.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, before.Version, after.Version)
	require.Equal(t, before.CurrentBid, after.CurrentBid)
	require.Empty(t, f.store.acceptedBids("lot1"))
	require.Empty(t, f.pub.eventsOfType(domain.EventBidAccepted))
}

func TestBidService_PlaceBid_LotNotFound(t *testing.T) {
	f := newBidFixture(t, nil, liveAuction())

	out, err := f.svc.PlaceBid(context.Background(), "missing", "userA", "Alice", 115)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectLotNotBiddable, out.Rejection.Reason)
}

func TestBidService_PlaceBid_RegistrationRequired(t *testing.T) {
	ctx := context.Background()
	auction := liveAuction()
	auction.Settings.RequireRegistrationToBid = true
	f := newBidFixture(t, activeLot(), auction)

	out, err := f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectRegistrationRequired, out.Rejection.Reason)

	_, err = f.regs.CreateRegistration(ctx, "auction1", "userA")
	require.NoError(t, err)

	out, err = f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.True(t, out.Accepted)
}

func TestBidService_PlaceBid_ConcurrentSameAmount(t *testing.T) {
	ctx := context.Background()
	lot := activeLot()
	lot.CurrentBid = 120
	f := newBidFixture(t, lot, liveAuction())

	var wg sync.WaitGroup
	outcomes := make([]*domain.BidOutcome, 2)
	users := []string{"userA", "userB"}
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := f.svc.PlaceBid(ctx, "lot1", users[i], users[i], 130)
			require.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	var accepted, tooLow int
	for _, out := range outcomes {
		if out.Accepted {
			accepted++
			continue
		}
		require.Equal(t, domain.RejectBidTooLow, out.Rejection.Reason)
		require.Equal(t, 140.0, out.Rejection.MinimumAcceptable)
		tooLow++
	}
	require.Equal(t, 1, accepted)
	require.Equal(t, 1, tooLow)

	final, err := f.store.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, 130.0, final.CurrentBid)
	require.Len(t, f.store.acceptedBids("lot1"), 1)
}

func TestBidService_PlaceBid_ConcurrentMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())

	const bidders = 20
	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := string(rune('a'+i%26)) + "-bidder"
			amount := 110 + float64(i*10)
			_, err := f.svc.PlaceBid(ctx, "lot1", user, user, amount)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Every accepted bid must be strictly higher than the previous one,
	// and the lot must end at the last accepted amount.
	accepted := f.store.acceptedBids("lot1")
	require.NotEmpty(t, accepted)
	prev := 100.0
	for _, bid := range accepted {
		require.Greater(t, bid.Amount, prev)
		prev = bid.Amount
	}

	final, err := f.store.GetLot(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, prev, final.CurrentBid)
	require.Len(t, f.pub.eventsOfType(domain.EventBidAccepted), len(accepted))
}

// conflictingStore fails CommitBid with a version conflict a fixed number of
// times before delegating to the real store.
type conflictingStore struct {
	*memoryStore
	mu        sync.Mutex
	conflicts int
}

func (s *conflictingStore) CommitBid(ctx context.Context, lot *domain.Lot, bid *domain.Bid) error {
	s.mu.Lock()
	remaining := s.conflicts
	if remaining > 0 {
		s.conflicts--
	}
	s.mu.Unlock()
	if remaining > 0 {
		return domain.ErrVersionConflict
	}
	return s.memoryStore.CommitBid(ctx, lot, bid)
}

func TestBidService_PlaceBid_RetriesVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{memoryStore: newMemoryStore(), conflicts: 2}
	store.addLot(activeLot())
	auctions := newMemoryAuctionRepo()
	require.NoError(t, auctions.CreateAuction(ctx, liveAuction()))

	svc := NewBidService(store, store, auctions, newMemoryRegistrationRepo(),
		NewKeyedLotLocker(time.Second), newMemoryLotCache(), &recordingPublisher{}, 5, logger.NewNop())

	out, err := svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.True(t, out.Accepted)
}

func TestBidService_PlaceBid_ConflictExhaustion(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{memoryStore: newMemoryStore(), conflicts: 100}
	store.addLot(activeLot())
	auctions := newMemoryAuctionRepo()
	require.NoError(t, auctions.CreateAuction(ctx, liveAuction()))

	svc := NewBidService(store, store, auctions, newMemoryRegistrationRepo(),
		NewKeyedLotLocker(time.Second), newMemoryLotCache(), &recordingPublisher{}, 3, logger.NewNop())

	out, err := svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectConflict, out.Rejection.Reason)
	require.True(t, out.Rejection.Retryable())
}

func TestBidService_PlaceBid_BusyWhenSectionHeld(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())
	f.svc.locker = NewKeyedLotLocker(20 * time.Millisecond)

	release, err := f.svc.locker.Acquire(ctx, "lot1")
	require.NoError(t, err)
	defer release()

	out, err := f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectBusy, out.Rejection.Reason)
	require.True(t, out.Rejection.Retryable())
}

func TestBidService_PlaceBid_LotClosedMidFlight(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())

	// The lot closes after the caller's pre-lock read; the in-section
	// re-validation must catch it.
	require.NoError(t, f.store.UpdateLotStatus(ctx, "lot1", domain.LotSold))

	out, err := f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.False(t, out.Accepted)
	require.Equal(t, domain.RejectLotNotBiddable, out.Rejection.Reason)
}

func TestBidService_GetBids(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())

	amounts := []float64{110, 125, 140}
	users := []string{"userA", "userB", "userA"}
	for i, amount := range amounts {
		out, err := f.svc.PlaceBid(ctx, "lot1", users[i], users[i], amount)
		require.NoError(t, err)
		require.True(t, out.Accepted)
	}

	lotBids, err := f.svc.GetBidsForLot(ctx, "lot1")
	require.NoError(t, err)
	require.Len(t, lotBids, 3)
	// Most recent first.
	require.Equal(t, 140.0, lotBids[0].Amount)
	require.Equal(t, 110.0, lotBids[2].Amount)

	userBids, err := f.svc.GetBidsForUser(ctx, "userA")
	require.NoError(t, err)
	require.Len(t, userBids, 2)
	require.Equal(t, 140.0, userBids[0].Amount)

	none, err := f.svc.GetBidsForUser(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestBidService_GetLotState(t *testing.T) {
	ctx := context.Background()
	f := newBidFixture(t, activeLot(), liveAuction())

	// Cache miss falls back to the store and populates the cache.
	lot, err := f.svc.GetLotState(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, 100.0, lot.CurrentBid)

	cached, err := f.cache.GetLotState(ctx, "lot1")
	require.NoError(t, err)
	require.NotNil(t, cached)

	// An accepted bid refreshes the snapshot.
	out, err := f.svc.PlaceBid(ctx, "lot1", "userA", "Alice", 115)
	require.NoError(t, err)
	require.True(t, out.Accepted)

	lot, err = f.svc.GetLotState(ctx, "lot1")
	require.NoError(t, err)
	require.Equal(t, 115.0, lot.CurrentBid)
	require.Equal(t, "userA", lot.HighestBidderID)

	_, err = f.svc.GetLotState(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrLotNotFound)
}
