package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/studyshare/internal/model"
)

// PostgresStudyListRepo はPostgreSQLを使用した学習リストリポジトリ。
type PostgresStudyListRepo struct {
	db *sql.DB
}

// NewPostgresStudyListRepo はPostgresStudyListRepoを生成する。
func NewPostgresStudyListRepo(db *sql.DB) *PostgresStudyListRepo {
	return &PostgresStudyListRepo{db: db}
}

const studyListColumns = `id, user_id, title, slug, description, category, is_public,
	position, copied_from_id, created_at, updated_at`

// scanStudyList は1行をmodel.StudyListへ読み込む。
func scanStudyList(row *sql.Row) (*model.StudyList, error) {
	list := &model.StudyList{}
	var description, copiedFrom sql.NullString
	var category string

	err := row.Scan(
		&list.ID, &list.UserID, &list.Title, &list.Slug, &description, &category,
		&list.IsPublic, &list.Position, &copiedFrom, &list.CreatedAt, &list.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	list.Category = model.Category(category)
	if description.Valid {
		list.Description = &description.String
	}
	if copiedFrom.Valid {
		list.CopiedFromID = &copiedFrom.String
	}

	return list, nil
}

// FindPublicByID は公開中のリストを取得する。
// 非公開または存在しない場合はnilを返す。
func (r *PostgresStudyListRepo) FindPublicByID(ctx context.Context, id string) (*model.StudyList, error) {
	list, err := scanStudyList(r.db.QueryRowContext(ctx,
		`SELECT `+studyListColumns+` FROM study_lists WHERE id = $1 AND is_public`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find public study list: %w", err)
	}
	return list, nil
}

// ListPublicWithOwner は発見フィード対象のリストを所有者情報・集計値付きで返す。
// 項目数と複製数はサブクエリで同時に取得し、投票行のフェッチは行わない
// （投票集計はVoteRepository.CountByListGroupedが担当する）。
func (r *PostgresStudyListRepo) ListPublicWithOwner(ctx context.Context, category *model.Category) ([]DiscoveryListRow, error) {
	query := `
		SELECT l.id, l.user_id, l.title, l.slug, l.description, l.category, l.is_public,
		       l.position, l.copied_from_id, l.created_at, l.updated_at,
		       u.username, u.profile_picture_url, u.avatar_url,
		       (SELECT COUNT(*) FROM study_items i WHERE i.study_list_id = l.id) AS item_count,
		       (SELECT COUNT(*) FROM study_lists c WHERE c.copied_from_id = l.id) AS copy_count
		FROM study_lists l
		JOIN users u ON u.id = l.user_id
		WHERE l.is_public AND u.username IS NOT NULL`

	args := []any{}
	if category != nil {
		query += ` AND l.category = $1`
		args = append(args, string(*category))
	}
	query += ` ORDER BY l.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list public study lists: %w", err)
	}
	defer rows.Close()

	var results []DiscoveryListRow
	for rows.Next() {
		var row DiscoveryListRow
		var description, copiedFrom, profilePic, avatar sql.NullString
		var cat string

		err := rows.Scan(
			&row.ID, &row.UserID, &row.Title, &row.Slug, &description, &cat,
			&row.IsPublic, &row.Position, &copiedFrom, &row.CreatedAt, &row.UpdatedAt,
			&row.OwnerUsername, &profilePic, &avatar,
			&row.ItemCount, &row.CopyCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discovery row: %w", err)
		}

		row.Category = model.Category(cat)
		if description.Valid {
			row.Description = &description.String
		}
		if copiedFrom.Valid {
			row.CopiedFromID = &copiedFrom.String
		}
		if profilePic.Valid {
			row.OwnerProfilePictureURL = &profilePic.String
		}
		if avatar.Valid {
			row.OwnerAvatarURL = &avatar.String
		}

		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discovery rows: %w", err)
	}

	return results, nil
}

// ListPrivateIDsByUser はユーザーの非公開リストIDをupdated_at降順で返す。
// ダウングレード調整は先頭から上限数を非公開のまま残し、残りを公開へ変換する。
func (r *PostgresStudyListRepo) ListPrivateIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM study_lists WHERE user_id = $1 AND NOT is_public ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list private study lists: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan study list ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study list IDs: %w", err)
	}

	return ids, nil
}

// FindByUserAndCopiedFrom はユーザーが指定リストから複製済みのリストを検索する。
func (r *PostgresStudyListRepo) FindByUserAndCopiedFrom(ctx context.Context, userID, copiedFromID string) (*model.StudyList, error) {
	list, err := scanStudyList(r.db.QueryRowContext(ctx,
		`SELECT `+studyListColumns+` FROM study_lists WHERE user_id = $1 AND copied_from_id = $2`,
		userID, copiedFromID))
	if err != nil {
		return nil, fmt.Errorf("failed to find copied study list: %w", err)
	}
	return list, nil
}

// SlugExists はユーザー内でslugが使用済みかを返す。
func (r *PostgresStudyListRepo) SlugExists(ctx context.Context, userID, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM study_lists WHERE user_id = $1 AND slug = $2)`,
		userID, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}
	return exists, nil
}

// ListItems はリストの項目をposition昇順で返す。
func (r *PostgresStudyListRepo) ListItems(ctx context.Context, listID string) ([]*model.StudyItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, study_list_id, title, notes, url, position, completed
		 FROM study_items WHERE study_list_id = $1 ORDER BY position ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list study items: %w", err)
	}
	defer rows.Close()

	var items []*model.StudyItem
	for rows.Next() {
		item := &model.StudyItem{}
		var notes, url sql.NullString
		if err := rows.Scan(&item.ID, &item.StudyListID, &item.Title, &notes, &url, &item.Position, &item.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan study item: %w", err)
		}
		if notes.Valid {
			item.Notes = &notes.String
		}
		if url.Valid {
			item.URL = &url.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study items: %w", err)
	}

	return items, nil
}

// CreateCopy は複製リストと項目を単一トランザクションで作成する。
// 複製先ユーザーの既存リストをposition+1で繰り上げ、新規リストを先頭(position 0)に置く。
func (r *PostgresStudyListRepo) CreateCopy(ctx context.Context, list *model.StudyList, items []*model.StudyItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 既存リストの並びを繰り上げ
	_, err = tx.ExecContext(ctx,
		`UPDATE study_lists SET position = position + 1 WHERE user_id = $1`,
		list.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to shift list positions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO study_lists (id, user_id, title, slug, description, category,
		                          is_public, position, copied_from_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		list.ID, list.UserID, list.Title, list.Slug, list.Description, string(list.Category),
		list.IsPublic, list.Position, list.CopiedFromID, list.CreatedAt, list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert copied list: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO study_items (id, study_list_id, title, notes, url, position, completed)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.StudyListID, item.Title, item.Notes, item.URL, item.Position, item.Completed,
		)
		if err != nil {
			return fmt.Errorf("failed to insert copied item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ StudyListRepository = (*PostgresStudyListRepo)(nil)
