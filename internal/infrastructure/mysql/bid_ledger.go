package mysql

import (
	"context"
	"database/sql"

	"auction-marketplace/internal/domain"
)

// MySQLBidLedger reads the append-only bids table. Writes happen only inside
// MySQLLotStore.CommitBid, in the same transaction as the lot update.
type MySQLBidLedger struct {
	db *sql.DB
}

func NewMySQLBidLedger(db *sql.DB) *MySQLBidLedger {
	return &MySQLBidLedger{db: db}
}

func (r *MySQLBidLedger) GetBidsForLot(ctx context.Context, lotID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, lot_id, user_id, user_name, amount, timestamp
        FROM bids
        WHERE lot_id = ?
        ORDER BY timestamp DESC, id DESC
    `
	return r.queryBids(ctx, query, lotID)
}

func (r *MySQLBidLedger) GetBidsForUser(ctx context.Context, userID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, lot_id, user_id, user_name, amount, timestamp
        FROM bids
        WHERE user_id = ?
        ORDER BY timestamp DESC, id DESC
    `
	return r.queryBids(ctx, query, userID)
}

func (r *MySQLBidLedger) queryBids(ctx context.Context, query string, arg interface{}) ([]*domain.Bid, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		err := rows.Scan(&bid.ID, &bid.LotID, &bid.UserID, &bid.UserName,
			&bid.Amount, &bid.Timestamp)
		if err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}
