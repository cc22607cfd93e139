package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-marketplace/internal/domain"
)

type MySQLRegistrationRepository struct {
	db *sql.DB
}

func NewMySQLRegistrationRepository(db *sql.DB) *MySQLRegistrationRepository {
	return &MySQLRegistrationRepository{db: db}
}

// CreateRegistration is idempotent: registering twice returns the existing
// record. The table's primary key is (auction_id, user_id).
func (r *MySQLRegistrationRepository) CreateRegistration(ctx context.Context, auctionID, userID string) (*domain.AuctionRegistration, error) {
	now := time.Now().UTC()
	query := `
        INSERT INTO auction_registrations (auction_id, user_id, created_at)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE auction_id = auction_id
    `
	if _, err := r.db.ExecContext(ctx, query, auctionID, userID, now); err != nil {
		return nil, err
	}

	var reg domain.AuctionRegistration
	err := r.db.QueryRowContext(ctx, `
        SELECT auction_id, user_id, created_at
        FROM auction_registrations
        WHERE auction_id = ? AND user_id = ?
    `, auctionID, userID).Scan(&reg.AuctionID, &reg.UserID, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *MySQLRegistrationRepository) IsRegistered(ctx context.Context, auctionID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
        SELECT 1 FROM auction_registrations
        WHERE auction_id = ? AND user_id = ?
    `, auctionID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
