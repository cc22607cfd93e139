package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"auction-marketplace/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisLotCache holds display snapshots of lot price/leader state. Catalog
// reads come from here unsynchronized; the store stays authoritative and the
// cache is rewritten after every accepted bid and lifecycle transition.
type RedisLotCache struct {
	client *redis.Client
}

func NewRedisLotCache(client *redis.Client) *RedisLotCache {
	return &RedisLotCache{client: client}
}

func lotKey(lotID string) string {
	return fmt.Sprintf("lot:%s", lotID)
}

func (r *RedisLotCache) SetLotState(ctx context.Context, lot *domain.Lot) error {
	return r.client.HSet(ctx, lotKey(lot.ID),
		"auction_id", lot.AuctionID,
		"lot_number", lot.LotNumber,
		"title", lot.Title,
		"starting_bid", fmt.Sprintf("%.2f", lot.StartingBid),
		"current_bid", fmt.Sprintf("%.2f", lot.CurrentBid),
		"bid_increment", fmt.Sprintf("%.2f", lot.BidIncrement),
		"status", int(lot.Status),
		"highest_bidder_id", lot.HighestBidderID,
		"highest_bidder_name", lot.HighestBidderName,
		"version", lot.Version,
		"updated_at", lot.UpdatedAt.Unix(),
	).Err()
}

func (r *RedisLotCache) GetLotState(ctx context.Context, lotID string) (*domain.Lot, error) {
	fields, err := r.client.HGetAll(ctx, lotKey(lotID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		// Cache miss; the caller falls back to the store.
		return nil, nil
	}

	lot := &domain.Lot{
		ID:                lotID,
		AuctionID:         fields["auction_id"],
		Title:             fields["title"],
		HighestBidderID:   fields["highest_bidder_id"],
		HighestBidderName: fields["highest_bidder_name"],
	}
	lot.LotNumber, _ = strconv.Atoi(fields["lot_number"])
	lot.StartingBid, _ = strconv.ParseFloat(fields["starting_bid"], 64)
	lot.CurrentBid, _ = strconv.ParseFloat(fields["current_bid"], 64)
	lot.BidIncrement, _ = strconv.ParseFloat(fields["bid_increment"], 64)
	lot.Version, _ = strconv.ParseInt(fields["version"], 10, 64)

	status, err := strconv.Atoi(fields["status"])
	if err != nil {
		return nil, fmt.Errorf("corrupt status in lot cache %s: %w", lotID, err)
	}
	lot.Status = domain.LotStatus(status)

	if updated, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		lot.UpdatedAt = time.Unix(updated, 0).UTC()
	}

	return lot, nil
}

func (r *RedisLotCache) InvalidateLot(ctx context.Context, lotID string) error {
	return r.client.Del(ctx, lotKey(lotID)).Err()
}
