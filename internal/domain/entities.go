package domain

import (
	"time"
)

// Auction owns a set of lots. Bids are only accepted while the auction is
// live and the lot itself is still active.
type Auction struct {
	ID        string
	Title     string
	SellerID  string
	StartTime time.Time
	EndTime   time.Time
	Status    AuctionStatus
	Settings  AuctionSettings
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AuctionSettings struct {
	RequireRegistrationToBid bool `json:"require_registration_to_bid"`
}

type AuctionStatus int

const (
	AuctionUpcoming AuctionStatus = iota
	AuctionLive
	AuctionEnded
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionUpcoming:
		return "upcoming"
	case AuctionLive:
		return "live"
	case AuctionEnded:
		return "ended"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Lot is a single biddable item. CurrentBid and the highest-bidder fields are
// mutated only through the bid placement path; Version is the optimistic
// concurrency stamp checked by every conditional write.
type Lot struct {
	ID                string
	AuctionID         string
	LotNumber         int
	Title             string
	StartingBid       float64
	CurrentBid        float64
	BidIncrement      float64
	Status            LotStatus
	EndTime           *time.Time
	HighestBidderID   string
	HighestBidderName string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MinimumBid is the lowest amount the lot currently accepts.
func (l *Lot) MinimumBid() float64 {
	return l.CurrentBid + l.BidIncrement
}

type LotStatus int

const (
	LotActive LotStatus = iota
	LotSold
	LotUnsold
	LotWithdrawn
)

func (s LotStatus) String() string {
	switch s {
	case LotActive:
		return "active"
	case LotSold:
		return "sold"
	case LotUnsold:
		return "unsold"
	case LotWithdrawn:
		return "withdrawn"
	default:
		return "unknown"
	}
}

// Bid is an immutable fact: user U offered amount A on lot L at time T.
// Rows are append-only; Timestamp is set by the ledger at acceptance.
type Bid struct {
	ID        string    `json:"id"`
	LotID     string    `json:"lot_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// AuctionRegistration records that a user may bid in an auction whose
// settings require registration.
type AuctionRegistration struct {
	AuctionID string    `json:"auction_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BidOutcome is the total result of a placement attempt. Exactly one of
// Bid (accepted) or Rejection is set.
type BidOutcome struct {
	Accepted  bool       `json:"accepted"`
	Bid       *Bid       `json:"bid,omitempty"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

type LotEvent struct {
	Type      LotEventType `json:"type"`
	LotID     string       `json:"lot_id"`
	AuctionID string       `json:"auction_id"`
	UserID    string       `json:"user_id,omitempty"`
	Amount    float64      `json:"amount,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type LotEventType string

const (
	EventBidAccepted LotEventType = "bid_accepted"
	EventLotClosed   LotEventType = "lot_closed"
	EventAuctionLive LotEventType = "auction_live"
)

type ScheduledJob struct {
	ID        string
	AuctionID string
	JobType   JobType
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobType string

const (
	JobOpenAuction  JobType = "open_auction"
	JobCloseAuction JobType = "close_auction"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)
