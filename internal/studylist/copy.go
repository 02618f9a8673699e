// Package studylist は学習リストの複製機能を提供する。
package studylist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// CacheInvalidator は複製後に発見フィードのキャッシュ済み描画を無効化する。
type CacheInvalidator interface {
	InvalidateDiscovery()
}

// Sanitizer は他ユーザーが書いたリッチテキストを許可タグのみに削る。
type Sanitizer interface {
	Sanitize(html string) string
}

// Service は学習リストの複製サービス。
type Service struct {
	listRepo    repository.StudyListRepository
	sanitizer   Sanitizer
	invalidator CacheInvalidator
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとinvalidatorはnil許容。
func NewService(listRepo repository.StudyListRepository, sanitizer Sanitizer, invalidator CacheInvalidator) *Service {
	return &Service{
		listRepo:    listRepo,
		sanitizer:   sanitizer,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// CopyList は他ユーザーの公開リストを項目ごと自分のリストとして複製する。
//
//   - 複製は非公開で作成され、ダッシュボード先頭（position 0）に置かれる。
//     既存リストの繰り上げと新規行の挿入は単一トランザクションで行う。
//   - 項目の完了状態は引き継がず、未完了から始める
//   - slugが自分のリストと重複する場合はタイムスタンプを付けて一意化する
//   - 複製元はcopied_from_idとして記録され、同じリストの二重複製を防ぐ
func (s *Service) CopyList(ctx context.Context, userID, listID string) (*model.StudyList, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}
	if _, err := uuid.Parse(listID); err != nil {
		return nil, model.NewValidationFailedError("list id")
	}

	source, err := s.listRepo.FindPublicByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("複製元リストの取得に失敗しました: %w", err)
	}
	if source == nil {
		return nil, model.NewListNotFoundError()
	}
	if source.UserID == userID {
		return nil, model.NewOwnListError()
	}

	existing, err := s.listRepo.FindByUserAndCopiedFrom(ctx, userID, listID)
	if err != nil {
		return nil, fmt.Errorf("複製済みリストの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyCopiedError()
	}

	slug, err := s.dedupeSlug(ctx, userID, source.Slug)
	if err != nil {
		return nil, err
	}

	sourceItems, err := s.listRepo.ListItems(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("複製元の項目取得に失敗しました: %w", err)
	}

	now := s.now()
	copied := &model.StudyList{
		ID:           uuid.NewString(),
		UserID:       userID,
		Title:        source.Title,
		Slug:         slug,
		Description:  s.sanitizeText(source.Description),
		Category:     source.Category,
		IsPublic:     false,
		Position:     0,
		CopiedFromID: &source.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	items := make([]*model.StudyItem, len(sourceItems))
	for i, item := range sourceItems {
		items[i] = &model.StudyItem{
			ID:          uuid.NewString(),
			StudyListID: copied.ID,
			Title:       item.Title,
			Notes:       s.sanitizeText(item.Notes),
			URL:         item.URL,
			Position:    item.Position,
			Completed:   false,
		}
	}

	if err := s.listRepo.CreateCopy(ctx, copied, items); err != nil {
		return nil, fmt.Errorf("リストの複製に失敗しました: %w", err)
	}

	slog.Info("list copied",
		slog.String("user_id", userID),
		slog.String("source_list_id", source.ID),
		slog.String("copied_list_id", copied.ID),
		slog.Int("item_count", len(items)),
	)
	if s.invalidator != nil {
		s.invalidator.InvalidateDiscovery()
	}

	return copied, nil
}

// sanitizeText は複製元の説明文・メモを無害化する。
// 複製元は他ユーザーの入力のため、持ち込むタグを許可リストに限定する。
func (s *Service) sanitizeText(text *string) *string {
	if text == nil || s.sanitizer == nil {
		return text
	}
	cleaned := s.sanitizer.Sanitize(*text)
	return &cleaned
}

// dedupeSlug は自分のリスト内でslugが使用済みの場合にタイムスタンプを付けて一意化する。
func (s *Service) dedupeSlug(ctx context.Context, userID, slug string) (string, error) {
	exists, err := s.listRepo.SlugExists(ctx, userID, slug)
	if err != nil {
		return "", fmt.Errorf("slugの確認に失敗しました: %w", err)
	}
	if !exists {
		return slug, nil
	}
	return fmt.Sprintf("%s-%d", slug, s.now().UnixMilli()), nil
}
