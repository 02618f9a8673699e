// Package user はユーザープロフィールと通知の参照・操作を提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// Profile はUIに返す自分自身のプロフィール概要。
type Profile struct {
	ID                     string                 `json:"id"`
	Email                  string                 `json:"email"`
	Username               *string                `json:"username"`
	ProfilePictureURL      *string                `json:"profile_picture_url"`
	AvatarURL              *string                `json:"avatar_url"`
	Tier                   model.Tier             `json:"tier"`
	LifetimePurchase       bool                   `json:"lifetime_purchase"`
	PendingDowngradeNotice *model.DowngradeNotice `json:"pending_downgrade_notice,omitempty"`
}

// Service はユーザー情報のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// GetProfile は自分自身のプロフィール概要を返す。
// 未確認のダウングレード通知があればそのまま含める。
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthenticationRequiredError()
	}

	return &Profile{
		ID:                     user.ID,
		Email:                  user.Email,
		Username:               user.Username,
		ProfilePictureURL:      user.ProfilePictureURL,
		AvatarURL:              user.AvatarURL,
		Tier:                   user.Tier,
		LifetimePurchase:       user.LifetimePurchase,
		PendingDowngradeNotice: user.PendingDowngradeNotice,
	}, nil
}

// DismissDowngradeNotice は未確認のダウングレード通知を消去する。
// 通知がない状態での呼び出しも成功として扱う（冪等）。
func (s *Service) DismissDowngradeNotice(ctx context.Context, userID string) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}
	if err := s.userRepo.ClearDowngradeNotice(ctx, userID); err != nil {
		return fmt.Errorf("ダウングレード通知の消去に失敗しました: %w", err)
	}
	return nil
}
