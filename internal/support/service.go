// Package support はユーザーからの問い合わせ受付を提供する。
package support

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// maxMessageLength は問い合わせ本文の上限文字数。
const maxMessageLength = 4000

// ticketTypes は受け付ける問い合わせ種別。
var ticketTypes = map[string]bool{
	"bug":      true,
	"feature":  true,
	"billing":  true,
	"account":  true,
	"other":    true,
	"feedback": true,
}

// Mailer は問い合わせ通知メールの送信インターフェース。
type Mailer interface {
	SendSupportNotification(ctx context.Context, ticket *model.SupportTicket) error
}

// Service は問い合わせ受付のサービス層。
// DBへの保存が正であり、通知メールはベストエフォート。
// メール送信の失敗で問い合わせ自体を失敗させることはない。
type Service struct {
	ticketRepo repository.SupportTicketRepository
	mailer     Mailer
}

// NewService はServiceの新しいインスタンスを生成する。
// mailerはnil許容で、nilの場合は通知メールをスキップする。
func NewService(ticketRepo repository.SupportTicketRepository, mailer Mailer) *Service {
	return &Service{
		ticketRepo: ticketRepo,
		mailer:     mailer,
	}
}

// CreateTicket は問い合わせを検証して保存し、通知メールを送る。
func (s *Service) CreateTicket(ctx context.Context, userID, ticketType, message string) (*model.SupportTicket, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}
	if !ticketTypes[ticketType] {
		return nil, model.NewValidationFailedError("ticket type")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, model.NewValidationFailedError("message")
	}
	if len(message) > maxMessageLength {
		return nil, model.NewValidationFailedError("message too long")
	}

	ticket := &model.SupportTicket{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ticketType,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("問い合わせの保存に失敗しました: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendSupportNotification(ctx, ticket); err != nil {
			// 通知は補助機能。失敗はログのみで問い合わせは成立させる
			slog.Warn("support notification mail failed",
				slog.String("ticket_id", ticket.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return ticket, nil
}
