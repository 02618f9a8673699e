package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/studyshare/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, username, profile_picture_url, avatar_url, tier,
	lifetime_purchase, stripe_customer_id, pending_downgrade_notice, created_at, updated_at`

// scanUser は1行をmodel.Userへ読み込む。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var username, profilePic, avatar, customerID sql.NullString
	var tier string
	var notice []byte

	err := row.Scan(
		&user.ID, &user.Email, &username, &profilePic, &avatar, &tier,
		&user.LifetimePurchase, &customerID, &notice, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Tier = model.Tier(tier)
	if username.Valid {
		user.Username = &username.String
	}
	if profilePic.Valid {
		user.ProfilePictureURL = &profilePic.String
	}
	if avatar.Valid {
		user.AvatarURL = &avatar.String
	}
	if customerID.Valid {
		user.StripeCustomerID = &customerID.String
	}
	if len(notice) > 0 {
		n := &model.DowngradeNotice{}
		if err := json.Unmarshal(notice, n); err != nil {
			return nil, fmt.Errorf("failed to decode downgrade notice: %w", err)
		}
		user.PendingDowngradeNotice = n
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByStripeCustomerID はStripe顧客IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by stripe customer ID: %w", err)
	}
	return user, nil
}

// SetStripeCustomerID は遅延割り当てされたStripe顧客IDを保存する。
func (r *PostgresUserRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET stripe_customer_id = $1, updated_at = now() WHERE id = $2`,
		customerID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer ID: %w", err)
	}
	return nil
}

// SetPremium はユーザーをpremiumに昇格し、顧客IDを保存する。
func (r *PostgresUserRepo) SetPremium(ctx context.Context, userID, customerID string, lifetime bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET tier = 'premium',
		     stripe_customer_id = $1,
		     lifetime_purchase = lifetime_purchase OR $2,
		     updated_at = now()
		 WHERE id = $3`,
		customerID, lifetime, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set premium tier: %w", err)
	}
	return nil
}

// SetTierByCustomerID は顧客IDで特定されるユーザーのtierを更新する。
func (r *PostgresUserRepo) SetTierByCustomerID(ctx context.Context, customerID string, tier model.Tier) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET tier = $1, updated_at = now() WHERE stripe_customer_id = $2`,
		string(tier), customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set tier by customer ID: %w", err)
	}
	return nil
}

// DowngradeToFree はtier変更とリスト公開反転を単一トランザクションでコミットする。
// 途中クラッシュで「tierはfreeだが非公開リストが上限超過」や
// 「通知だけ記録され変換は未実施」という状態を観測させないための原子性保証。
func (r *PostgresUserRepo) DowngradeToFree(ctx context.Context, userID string, convertListIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(convertListIDs) > 0 {
		// 超過分のリストを公開へ反転
		_, err = tx.ExecContext(ctx,
			`UPDATE study_lists SET is_public = TRUE, updated_at = now()
			 WHERE id = ANY($1) AND user_id = $2`,
			pq.Array(convertListIDs), userID,
		)
		if err != nil {
			return fmt.Errorf("failed to convert lists to public: %w", err)
		}

		notice, err := json.Marshal(model.DowngradeNotice{PrivatizedCount: len(convertListIDs)})
		if err != nil {
			return fmt.Errorf("failed to encode downgrade notice: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET tier = 'free', pending_downgrade_notice = $1, updated_at = now()
			 WHERE id = $2`,
			notice, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to downgrade user tier: %w", err)
		}
	} else {
		// 変換が不要な場合は通知フィールドに触れない
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET tier = 'free', updated_at = now() WHERE id = $1`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("failed to downgrade user tier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ClearDowngradeNotice は未確認のダウングレード通知を消去する。
func (r *PostgresUserRepo) ClearDowngradeNotice(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET pending_downgrade_notice = NULL, updated_at = now() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear downgrade notice: %w", err)
	}
	return nil
}

// CountLifetimePurchases はライフタイム購入済みユーザー数を返す。
func (r *PostgresUserRepo) CountLifetimePurchases(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE lifetime_purchase`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lifetime purchases: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
