package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLLotStore struct {
	db *sql.DB
}

func NewMySQLLotStore(db *sql.DB) *MySQLLotStore {
	return &MySQLLotStore{db: db}
}

const lotColumns = `id, auction_id, lot_number, title, starting_bid, current_bid,
        bid_increment, status, end_time, highest_bidder_id, highest_bidder_name,
        version, created_at, updated_at`

func (r *MySQLLotStore) CreateLot(ctx context.Context, lot *domain.Lot) error {
	query := `
        INSERT INTO lots (` + lotColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		lot.ID, lot.AuctionID, lot.LotNumber, lot.Title,
		lot.StartingBid, lot.CurrentBid, lot.BidIncrement, int(lot.Status),
		lot.EndTime, nullString(lot.HighestBidderID), nullString(lot.HighestBidderName),
		lot.Version, lot.CreatedAt, lot.UpdatedAt)
	return err
}

func (r *MySQLLotStore) GetLot(ctx context.Context, lotID string) (*domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = ?`

	lot, err := scanLot(r.db.QueryRowContext(ctx, query, lotID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lot %s: %w", lotID, domain.ErrLotNotFound)
	}
	return lot, err
}

func (r *MySQLLotStore) GetLotsByAuction(ctx context.Context, auctionID string) ([]*domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE auction_id = ? ORDER BY lot_number ASC`

	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []*domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// UpdateLotStatus bumps the version alongside the status so any in-flight
// CommitBid that validated against the active lot loses its conditional write.
func (r *MySQLLotStore) UpdateLotStatus(ctx context.Context, lotID string, status domain.LotStatus) error {
	query := `UPDATE lots SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, int(status), time.Now().UTC(), lotID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("lot %s: %w", lotID, domain.ErrLotNotFound)
	}
	return nil
}

// CommitBid writes the bid row and the lot price/leader update in one
// transaction. The lot update is conditional on the version the snapshot was
// read at; zero rows affected means another bid (or a close) got there first.
func (r *MySQLLotStore) CommitBid(ctx context.Context, lot *domain.Lot, bid *domain.Bid) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bid tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE lots
        SET current_bid = ?, highest_bidder_id = ?, highest_bidder_name = ?,
            version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?
    `, bid.Amount, bid.UserID, bid.UserName, bid.Timestamp, lot.ID, lot.Version)
	if err != nil {
		return fmt.Errorf("update lot %s: %w", lot.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("lot %s at version %d: %w", lot.ID, lot.Version, domain.ErrVersionConflict)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bids (id, lot_id, user_id, user_name, amount, timestamp)
        VALUES (?, ?, ?, ?, ?, ?)
    `, bid.ID, bid.LotID, bid.UserID, bid.UserName, bid.Amount, bid.Timestamp)
	if err != nil {
		return fmt.Errorf("insert bid %s: %w", bid.ID, err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLot(row rowScanner) (*domain.Lot, error) {
	var lot domain.Lot
	var status int
	var endTime sql.NullTime
	var bidderID, bidderName sql.NullString

	err := row.Scan(&lot.ID, &lot.AuctionID, &lot.LotNumber, &lot.Title,
		&lot.StartingBid, &lot.CurrentBid, &lot.BidIncrement, &status,
		&endTime, &bidderID, &bidderName,
		&lot.Version, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return nil, err
	}

	lot.Status = domain.LotStatus(status)
	if endTime.Valid {
		t := endTime.Time
		lot.EndTime = &t
	}
	lot.HighestBidderID = bidderID.String
	lot.HighestBidderName = bidderName.String
	return &lot, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
