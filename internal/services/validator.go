package services

import (
	"math"

	"auction-marketplace/internal/domain"
)

// BidRequest is the typed, caller-supplied part of a bid. The timestamp is
// never part of the request; the ledger assigns it at acceptance.
type BidRequest struct {
	LotID    string
	UserID   string
	UserName string
	Amount   float64
}

// ValidateBid decides whether a proposed bid is acceptable against a snapshot
// of lot and auction state. It is side-effect free so it can be re-run
// against fresh snapshots under optimistic retry. A nil result means accept;
// otherwise the rejection names the first failing check.
//
// Check order is fixed: biddable state, self-outbid guard, seller guard,
// registration, increment rule, amount sanity.
func ValidateBid(req BidRequest, lot *domain.Lot, auction *domain.Auction, registered bool) *domain.Rejection {
	if lot == nil || auction == nil || lot.Status != domain.LotActive || auction.Status != domain.AuctionLive {
		return domain.NewRejection(domain.RejectLotNotBiddable, "lot is not open for bidding")
	}

	if lot.HighestBidderID != "" && req.UserID == lot.HighestBidderID {
		return domain.NewRejection(domain.RejectAlreadyHighestBidder, "you are already the highest bidder")
	}

	if req.UserID == auction.SellerID {
		return domain.NewRejection(domain.RejectSellerCannotBid, "sellers cannot bid in their own auction")
	}

	if auction.Settings.RequireRegistrationToBid && !registered {
		return domain.NewRejection(domain.RejectRegistrationRequired, "registration is required to bid in this auction")
	}

	// Equal to the minimum is acceptable.
	if req.Amount < lot.MinimumBid() {
		return domain.NewBidTooLowRejection(lot.MinimumBid())
	}

	if req.Amount <= 0 || math.IsInf(req.Amount, 0) || math.IsNaN(req.Amount) {
		return domain.NewRejection(domain.RejectInvalidAmount, "bid amount must be a finite positive number")
	}

	return nil
}
