package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/studyshare/internal/model"
)

// PostgresSupportTicketRepo はPostgreSQLを使用した問い合わせリポジトリ。
type PostgresSupportTicketRepo struct {
	db *sql.DB
}

// NewPostgresSupportTicketRepo はPostgresSupportTicketRepoを生成する。
func NewPostgresSupportTicketRepo(db *sql.DB) *PostgresSupportTicketRepo {
	return &PostgresSupportTicketRepo{db: db}
}

// Create は問い合わせを作成する。
func (r *PostgresSupportTicketRepo) Create(ctx context.Context, ticket *model.SupportTicket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO support_tickets (id, user_id, type, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ticket.ID, ticket.UserID, ticket.Type, ticket.Message, ticket.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert support ticket: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SupportTicketRepository = (*PostgresSupportTicketRepo)(nil)
