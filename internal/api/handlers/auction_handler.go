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

// AuctionService is what the listing/lifecycle endpoints need from the
// auction manager.
type AuctionService interface {
	CreateAuction(ctx context.Context, title, sellerID string, startTime, endTime time.Time, settings domain.AuctionSettings) (*domain.Auction, error)
	AddLot(ctx context.Context, auctionID string, lotNumber int, title string, startingBid, bidIncrement float64) (*domain.Lot, error)
	CancelAuction(ctx context.Context, auctionID string) error
}

type AuctionHandler struct {
	auctions      AuctionService
	auctionRepo   domain.AuctionRepository
	registrations domain.RegistrationRepository
	log           logger.Logger
}

func NewAuctionHandler(auctions AuctionService, auctionRepo domain.AuctionRepository,
	registrations domain.RegistrationRepository, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions:      auctions,
		auctionRepo:   auctionRepo,
		registrations: registrations,
		log:           log,
	}
}

func (h *AuctionHandler) Register(g *echo.Group) {
	g.POST("/auctions", h.CreateAuction)
	g.GET("/auctions/:id", h.GetAuction)
	g.POST("/auctions/:id/cancel", h.CancelAuction)
	g.POST("/auctions/:id/lots", h.AddLot)
	g.POST("/auctions/:id/register", h.RegisterBidder)
	g.GET("/auctions/:id/registration", h.CheckRegistration)
}

type CreateAuctionRequest struct {
	Title                    string    `json:"title"`
	SellerID                 string    `json:"seller_id"`
	StartTime                time.Time `json:"start_time"`
	EndTime                  time.Time `json:"end_time"`
	RequireRegistrationToBid bool      `json:"require_registration_to_bid"`
}

type AuctionResponse struct {
	AuctionID                string    `json:"auction_id"`
	Title                    string    `json:"title"`
	SellerID                 string    `json:"seller_id"`
	StartTime                time.Time `json:"start_time"`
	EndTime                  time.Time `json:"end_time"`
	Status                   string    `json:"status"`
	RequireRegistrationToBid bool      `json:"require_registration_to_bid"`
}

func auctionResponse(a *domain.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:                a.ID,
		Title:                    a.Title,
		SellerID:                 a.SellerID,
		StartTime:                a.StartTime,
		EndTime:                  a.EndTime,
		Status:                   a.Status.String(),
		RequireRegistrationToBid: a.Settings.RequireRegistrationToBid,
	}
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.SellerID == "" || req.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title and seller_id are required"})
	}
	if req.EndTime.Before(req.StartTime) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "end time must be after start time"})
	}

	auction, err := h.auctions.CreateAuction(c.Request().Context(), req.Title, req.SellerID,
		req.StartTime, req.EndTime,
		domain.AuctionSettings{RequireRegistrationToBid: req.RequireRegistrationToBid})
	if err != nil {
		h.log.Error("failed to create auction", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create auction"})
	}

	return c.JSON(http.StatusCreated, auctionResponse(auction))
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auctionID := c.Param("id")

	auction, err := h.auctionRepo.GetAuction(c.Request().Context(), auctionID)
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "auction not found"})
	}
	if err != nil {
		h.log.Error("failed to load auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load auction"})
	}

	return c.JSON(http.StatusOK, auctionResponse(auction))
}

func (h *AuctionHandler) CancelAuction(c echo.Context) error {
	auctionID := c.Param("id")

	if err := h.auctions.CancelAuction(c.Request().Context(), auctionID); err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "auction not found"})
		}
		h.log.Error("failed to cancel auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to cancel auction"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

type AddLotRequest struct {
	LotNumber    int     `json:"lot_number"`
	Title        string  `json:"title"`
	StartingBid  float64 `json:"starting_bid"`
	BidIncrement float64 `json:"bid_increment"`
}

func (h *AuctionHandler) AddLot(c echo.Context) error {
	auctionID := c.Param("id")

	var req AddLotRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.LotNumber <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "lot number must be positive"})
	}
	if req.StartingBid < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "starting bid must be non-negative"})
	}
	if req.BidIncrement <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bid increment must be positive"})
	}

	lot, err := h.auctions.AddLot(c.Request().Context(), auctionID, req.LotNumber, req.Title,
		req.StartingBid, req.BidIncrement)
	if errors.Is(err, domain.ErrAuctionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "auction not found"})
	}
	if err != nil {
		h.log.Error("failed to add lot", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to add lot"})
	}

	return c.JSON(http.StatusCreated, LotResponse{
		LotID:        lot.ID,
		AuctionID:    lot.AuctionID,
		LotNumber:    lot.LotNumber,
		Title:        lot.Title,
		StartingBid:  lot.StartingBid,
		CurrentBid:   lot.CurrentBid,
		MinimumBid:   lot.MinimumBid(),
		BidIncrement: lot.BidIncrement,
		Status:       lot.Status.String(),
		EndTime:      lot.EndTime,
	})
}

type RegisterBidderRequest struct {
	UserID string `json:"user_id"`
}

func (h *AuctionHandler) RegisterBidder(c echo.Context) error {
	auctionID := c.Param("id")

	var req RegisterBidderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	if _, err := h.auctionRepo.GetAuction(c.Request().Context(), auctionID); err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "auction not found"})
		}
		h.log.Error("failed to load auction", "auction_id", auctionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to register"})
	}

	reg, err := h.registrations.CreateRegistration(c.Request().Context(), auctionID, req.UserID)
	if err != nil {
		h.log.Error("failed to register bidder", "auction_id", auctionID, "user_id", req.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to register"})
	}

	return c.JSON(http.StatusCreated, reg)
}

func (h *AuctionHandler) CheckRegistration(c echo.Context) error {
	auctionID := c.Param("id")
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	registered, err := h.registrations.IsRegistered(c.Request().Context(), auctionID, userID)
	if err != nil {
		h.log.Error("failed to check registration", "auction_id", auctionID, "user_id", userID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to check registration"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"registered": registered})
}
