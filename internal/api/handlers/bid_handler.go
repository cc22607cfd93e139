package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BiddingService is what the bid endpoints need from the placement service.
type BiddingService interface {
	PlaceBid(ctx context.Context, lotID, userID, userName string, amount float64) (*domain.BidOutcome, error)
	GetBidsForLot(ctx context.Context, lotID string) ([]*domain.Bid, error)
	GetBidsForUser(ctx context.Context, userID string) ([]*domain.Bid, error)
	GetLotState(ctx context.Context, lotID string) (*domain.Lot, error)
}

type BidHandler struct {
	bidding BiddingService
	log     logger.Logger
}

func NewBidHandler(bidding BiddingService, log logger.Logger) *BidHandler {
	return &BidHandler{
		bidding: bidding,
		log:     log,
	}
}

func (h *BidHandler) Register(g *echo.Group) {
	g.POST("/bids", h.PlaceBid)
	g.GET("/lots/:id", h.GetLot)
	g.GET("/lots/:id/bids", h.GetBidsForLot)
	g.GET("/users/:id/bids", h.GetBidsForUser)
}

type PlaceBidRequest struct {
	LotID    string  `json:"lot_id"`
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Amount   float64 `json:"amount"`
}

type PlaceBidResponse struct {
	Status            string              `json:"status"`
	Bid               *domain.Bid         `json:"bid,omitempty"`
	Reason            domain.RejectReason `json:"reason,omitempty"`
	Message           string              `json:"message,omitempty"`
	MinimumAcceptable float64             `json:"minimum_acceptable,omitempty"`
}

type LotResponse struct {
	LotID             string     `json:"lot_id"`
	AuctionID         string     `json:"auction_id"`
	LotNumber         int        `json:"lot_number"`
	Title             string     `json:"title"`
	StartingBid       float64    `json:"starting_bid"`
	CurrentBid        float64    `json:"current_bid"`
	MinimumBid        float64    `json:"minimum_bid"`
	BidIncrement      float64    `json:"bid_increment"`
	Status            string     `json:"status"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	HighestBidderID   string     `json:"highest_bidder_id,omitempty"`
	HighestBidderName string     `json:"highest_bidder_name,omitempty"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.LotID == "" || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "lot_id and user_id are required"})
	}

	outcome, err := h.bidding.PlaceBid(c.Request().Context(), req.LotID, req.UserID, req.UserName, req.Amount)
	if err != nil {
		h.log.Error("bid placement failed", "lot_id", req.LotID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to place bid"})
	}

	if outcome.Accepted {
		return c.JSON(http.StatusCreated, PlaceBidResponse{
			Status: "accepted",
			Bid:    outcome.Bid,
		})
	}

	rej := outcome.Rejection
	return c.JSON(rejectStatus(rej.Reason), PlaceBidResponse{
		Status:            "rejected",
		Reason:            rej.Reason,
		Message:           rej.Message,
		MinimumAcceptable: rej.MinimumAcceptable,
	})
}

func rejectStatus(reason domain.RejectReason) int {
	switch reason {
	case domain.RejectBidTooLow, domain.RejectInvalidAmount:
		return http.StatusBadRequest
	case domain.RejectSellerCannotBid, domain.RejectRegistrationRequired:
		return http.StatusForbidden
	case domain.RejectBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusConflict
	}
}

func (h *BidHandler) GetLot(c echo.Context) error {
	lotID := c.Param("id")

	lot, err := h.bidding.GetLotState(c.Request().Context(), lotID)
	if errors.Is(err, domain.ErrLotNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "lot not found"})
	}
	if err != nil {
		h.log.Error("failed to load lot", "lot_id", lotID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load lot"})
	}

	return c.JSON(http.StatusOK, LotResponse{
		LotID:             lot.ID,
		AuctionID:         lot.AuctionID,
		LotNumber:         lot.LotNumber,
		Title:             lot.Title,
		StartingBid:       lot.StartingBid,
		CurrentBid:        lot.CurrentBid,
		MinimumBid:        lot.MinimumBid(),
		BidIncrement:      lot.BidIncrement,
		Status:            lot.Status.String(),
		EndTime:           lot.EndTime,
		HighestBidderID:   lot.HighestBidderID,
		HighestBidderName: lot.HighestBidderName,
	})
}

func (h *BidHandler) GetBidsForLot(c echo.Context) error {
	lotID := c.Param("id")

	bids, err := h.bidding.GetBidsForLot(c.Request().Context(), lotID)
	if err != nil {
		h.log.Error("failed to load lot bids", "lot_id", lotID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load bids"})
	}
	if bids == nil {
		bids = []*domain.Bid{}
	}

	return c.JSON(http.StatusOK, bids)
}

func (h *BidHandler) GetBidsForUser(c echo.Context) error {
	userID := c.Param("id")

	bids, err := h.bidding.GetBidsForUser(c.Request().Context(), userID)
	if err != nil {
		h.log.Error("failed to load user bids", "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load bids"})
	}
	if bids == nil {
		bids = []*domain.Bid{}
	}

	return c.JSON(http.StatusOK, bids)
}
