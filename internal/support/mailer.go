package support

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hitoshi/studyshare/internal/model"
)

// SendGridMailer はMailerのSendGrid実装。
type SendGridMailer struct {
	apiKey   string
	toAddr   string
	fromAddr string
}

var _ Mailer = (*SendGridMailer)(nil)

// NewSendGridMailer はSendGridMailerの新しいインスタンスを生成する。
// apiKeyまたはtoAddrが空の場合はnilを返し、通知自体を無効化する。
func NewSendGridMailer(apiKey, toAddr, fromAddr string) *SendGridMailer {
	if apiKey == "" || toAddr == "" {
		return nil
	}
	return &SendGridMailer{
		apiKey:   apiKey,
		toAddr:   toAddr,
		fromAddr: fromAddr,
	}
}

// SendSupportNotification は問い合わせ内容を運用宛に転送する。
func (m *SendGridMailer) SendSupportNotification(ctx context.Context, ticket *model.SupportTicket) error {
	subject := fmt.Sprintf("[StudyShare] お問い合わせ (%s)", ticket.Type)
	body := fmt.Sprintf(
		"Ticket: %s\nUser: %s\nType: %s\n\n%s",
		ticket.ID, ticket.UserID, ticket.Type, ticket.Message,
	)

	from := sgmail.NewEmail("StudyShare", m.fromAddr)
	to := sgmail.NewEmail("", m.toAddr)
	message := sgmail.NewSingleEmail(from, subject, to, body, "")

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("通知メールの送信に失敗しました: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("通知メールの送信に失敗しました: status %d", resp.StatusCode)
	}
	return nil
}
