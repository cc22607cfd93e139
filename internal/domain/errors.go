package domain

import (
	"errors"
	"fmt"
)

// Infrastructure and concurrency errors. Business rejections are not errors;
// they travel as Rejection values inside a BidOutcome.
var (
	ErrLotNotFound     = errors.New("lot not found")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrVersionConflict = errors.New("lot version conflict")
	ErrLotBusy         = errors.New("lot is busy")
)

// RejectReason identifies why a bid was not accepted.
type RejectReason string

const (
	RejectLotNotBiddable       RejectReason = "lot_not_biddable"
	RejectAlreadyHighestBidder RejectReason = "already_highest_bidder"
	RejectSellerCannotBid      RejectReason = "seller_cannot_bid_own_auction"
	RejectRegistrationRequired RejectReason = "registration_required"
	RejectBidTooLow            RejectReason = "bid_too_low"
	RejectInvalidAmount        RejectReason = "invalid_amount"
	RejectConflict             RejectReason = "conflict"
	RejectBusy                 RejectReason = "busy"
)

// Rejection carries the reason a bid was refused plus enough detail for the
// bidder to correct and resubmit. MinimumAcceptable is set for bid_too_low.
type Rejection struct {
	Reason            RejectReason `json:"reason"`
	Message           string       `json:"message"`
	MinimumAcceptable float64      `json:"minimum_acceptable,omitempty"`
}

// Retryable reports whether resubmitting the same bid unchanged can succeed.
func (r *Rejection) Retryable() bool {
	return r.Reason == RejectConflict || r.Reason == RejectBusy
}

func NewRejection(reason RejectReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

func NewBidTooLowRejection(minimum float64) *Rejection {
	return &Rejection{
		Reason:            RejectBidTooLow,
		Message:           fmt.Sprintf("bid must be at least %.2f", minimum),
		MinimumAcceptable: minimum,
	}
}
