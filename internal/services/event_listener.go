package services

import (
	"context"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// EventListener consumes lot events published by other instances and keeps
// the shared lot snapshot cache honest: an accepting instance may crash
// between its commit and its cache refresh, so every listener re-reads the
// lot from the store and rewrites the snapshot.
type EventListener struct {
	lots       domain.LotStore
	stateCache domain.LotStateCache
	log        logger.Logger
}

func NewEventListener(lots domain.LotStore, stateCache domain.LotStateCache, log logger.Logger) *EventListener {
	return &EventListener{
		lots:       lots,
		stateCache: stateCache,
		log:        log,
	}
}

func (l *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	return subscriber.SubscribeToLotEvents(ctx, l.handleEvent)
}

func (l *EventListener) handleEvent(event *domain.LotEvent) error {
	switch event.Type {
	case domain.EventBidAccepted, domain.EventLotClosed:
		ctx := context.Background()
		lot, err := l.lots.GetLot(ctx, event.LotID)
		if err != nil {
			l.log.Error("failed to refresh lot after event", "lot_id", event.LotID, "error", err)
			return err
		}
		if err := l.stateCache.SetLotState(ctx, lot); err != nil {
			l.log.Error("failed to rewrite lot snapshot", "lot_id", event.LotID, "error", err)
			return err
		}
	case domain.EventAuctionLive:
		l.log.Info("auction went live", "auction_id", event.AuctionID)
	}
	return nil
}
