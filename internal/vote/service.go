// Package vote は投票台帳のドメインロジックを提供する。
package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// CacheInvalidator は投票書き込み後に発見フィードのキャッシュ済み描画を
// 無効化するためのシグナルインターフェース。実体はプレゼンテーション層が持つ。
type CacheInvalidator interface {
	InvalidateDiscovery()
}

// MetricsRecorder は投票操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordVoteCast(voteType string)
}

// Service は投票台帳のサービス層。
// (投票者, リスト)ペアごとのトグル状態機械を所有し、
// 「1ペアにつき投票行は高々1件」の不変条件を維持する。
type Service struct {
	voteRepo    repository.VoteRepository
	listRepo    repository.StudyListRepository
	invalidator CacheInvalidator
	metrics     MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// invalidatorとmetricsはnil許容。
func NewService(
	voteRepo repository.VoteRepository,
	listRepo repository.StudyListRepository,
	invalidator CacheInvalidator,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		voteRepo:    voteRepo,
		listRepo:    listRepo,
		invalidator: invalidator,
		metrics:     metrics,
	}
}

// CastVote は(voterID, listID)ペアに対して種別voteTypeの投票をキャストする。
// 同種の再キャストはトグル解除（行削除）、反対種別へのキャストは
// 種別のインプレース更新になる。
//
// 失敗は*model.APIErrorとして返す:
//   - voterIDが空 → AUTHENTICATION_REQUIRED
//   - listIDまたはvoteTypeが不正 → VALIDATION_FAILED
//   - 対象リストが存在しないか非公開 → NOT_FOUND（所有者でも同様）
//   - 同時初回投票の競合が再試行でも解消しない → CONFLICT
func (s *Service) CastVote(ctx context.Context, voterID, listID, voteType string) error {
	if voterID == "" {
		return model.NewAuthenticationRequiredError()
	}
	if _, err := uuid.Parse(listID); err != nil {
		return model.NewValidationFailedError("list id")
	}
	if !model.IsValidVoteType(voteType) {
		return model.NewValidationFailedError("vote type")
	}

	// 投票対象は公開リストのみ。非公開リストは所有者にも見せない。
	list, err := s.listRepo.FindPublicByID(ctx, listID)
	if err != nil {
		return fmt.Errorf("投票対象の取得に失敗しました: %w", err)
	}
	if list == nil {
		return model.NewListNotFoundError()
	}

	err = s.applyTransition(ctx, voterID, listID, model.VoteType(voteType))
	if errors.Is(err, model.ErrVoteConflict) {
		// 同一ペアへの同時初回投票がunique制約に衝突した。
		// 読み直して遷移をやり直す: 再読で見えるのは先勝ちした行なので、
		// 同種の二重送信はトグル解除（行削除）、異種なら種別切り替えに解決する。
		slog.Warn("vote insert conflict, retrying transition",
			slog.String("user_id", voterID),
			slog.String("study_list_id", listID),
		)
		err = s.applyTransition(ctx, voterID, listID, model.VoteType(voteType))
		if errors.Is(err, model.ErrVoteConflict) {
			return model.NewVoteConflictError()
		}
	}
	if err != nil {
		return err
	}

	// 書き込み成功後は必ずフィードキャッシュの無効化シグナルを出す
	if s.invalidator != nil {
		s.invalidator.InvalidateDiscovery()
	}
	if s.metrics != nil {
		s.metrics.RecordVoteCast(voteType)
	}

	return nil
}

// applyTransition は現在の投票状態を読み、トグル遷移規則に従って1回書き込む。
func (s *Service) applyTransition(ctx context.Context, voterID, listID string, cast model.VoteType) error {
	existing, err := s.voteRepo.FindByVoterAndList(ctx, voterID, listID)
	if err != nil {
		return fmt.Errorf("既存投票の取得に失敗しました: %w", err)
	}

	switch Transition(StateOf(existing), cast) {
	case ActionInsert:
		vote := &model.Vote{
			ID:          uuid.NewString(),
			UserID:      voterID,
			StudyListID: listID,
			Type:        cast,
			CreatedAt:   time.Now(),
		}
		if err := s.voteRepo.Create(ctx, vote); err != nil {
			if errors.Is(err, model.ErrVoteConflict) {
				return err
			}
			return fmt.Errorf("投票の作成に失敗しました: %w", err)
		}

	case ActionDelete:
		if err := s.voteRepo.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("投票の削除に失敗しました: %w", err)
		}

	case ActionUpdate:
		if err := s.voteRepo.UpdateType(ctx, existing.ID, cast); err != nil {
			return fmt.Errorf("投票種別の更新に失敗しました: %w", err)
		}
	}

	return nil
}
