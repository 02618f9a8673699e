package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// DowngradeMetrics はダウングレード調整処理のメトリクス記録インターフェース。
type DowngradeMetrics interface {
	RecordDowngrade(privatizedCount int)
}

// Reconciler はpremium喪失時のアカウント状態をfreeプランの制約に合わせる。
//
// 調整は現在状態の純粋関数（非公開リスト数と上限の比較）であり、
// 前回からの差分には依存しない。Webhookの再配送や重複配送で
// 同じ顧客IDについて再実行されても安全（追加の変換は0件）。
type Reconciler struct {
	userRepo repository.UserRepository
	listRepo repository.StudyListRepository
	metrics  DowngradeMetrics
}

// NewReconciler はReconcilerの新しいインスタンスを生成する。metricsはnil許容。
func NewReconciler(
	userRepo repository.UserRepository,
	listRepo repository.StudyListRepository,
	metrics DowngradeMetrics,
) *Reconciler {
	return &Reconciler{
		userRepo: userRepo,
		listRepo: listRepo,
		metrics:  metrics,
	}
}

// ReconcileDowngrade は顧客IDで特定されるユーザーをfreeプランへ調整する。
//
//   - 未知の顧客ID（削除済みアカウントへの迷子イベント）は警告ログのみで成功扱い
//   - ライフタイム購入者はサブスクリプション喪失の影響を受けないため何もしない
//   - 非公開リストのうちupdated_atが新しい方から上限数だけ残し、残りを公開へ反転
//   - tier変更とリスト反転は単一トランザクションでコミットされる
//   - 変換が1件以上発生した場合のみ件数付きの未確認通知を記録する
//
// トランザクション失敗はそのまま返し、Webhook層の再配送に委ねる。
func (r *Reconciler) ReconcileDowngrade(ctx context.Context, customerID string) error {
	user, err := r.userRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("顧客IDでのユーザー検索に失敗しました: %w", err)
	}
	if user == nil {
		slog.Warn("downgrade event for unknown customer, skipping",
			slog.String("customer_id", customerID),
		)
		return nil
	}
	if user.LifetimePurchase {
		slog.Info("skipping downgrade for lifetime purchaser",
			slog.String("user_id", user.ID),
		)
		return nil
	}

	privateIDs, err := r.listRepo.ListPrivateIDsByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("非公開リストの取得に失敗しました: %w", err)
	}

	// updated_at降順で並んでいるため、先頭limit件を残して以降を変換する
	var convertIDs []string
	if len(privateIDs) > model.FreeTierPrivateListLimit {
		convertIDs = privateIDs[model.FreeTierPrivateListLimit:]
	}

	if err := r.userRepo.DowngradeToFree(ctx, user.ID, convertIDs); err != nil {
		return fmt.Errorf("ダウングレードのコミットに失敗しました: %w", err)
	}

	slog.Info("downgrade reconciled",
		slog.String("user_id", user.ID),
		slog.Int("private_lists", len(privateIDs)),
		slog.Int("privatized_count", len(convertIDs)),
	)
	if r.metrics != nil {
		r.metrics.RecordDowngrade(len(convertIDs))
	}

	return nil
}
