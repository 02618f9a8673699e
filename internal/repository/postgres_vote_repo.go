package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/studyshare/internal/model"
)

// uniqueViolation はPostgreSQLのunique_violationエラーコード。
const uniqueViolation = "23505"

// PostgresVoteRepo はPostgreSQLを使用した投票リポジトリ。
type PostgresVoteRepo struct {
	db *sql.DB
}

// NewPostgresVoteRepo はPostgresVoteRepoを生成する。
func NewPostgresVoteRepo(db *sql.DB) *PostgresVoteRepo {
	return &PostgresVoteRepo{db: db}
}

// FindByVoterAndList は(投票者, リスト)ペアの投票を取得する。見つからない場合はnilを返す。
func (r *PostgresVoteRepo) FindByVoterAndList(ctx context.Context, userID, listID string) (*model.Vote, error) {
	vote := &model.Vote{}
	var voteType string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, study_list_id, type, created_at
		 FROM votes WHERE user_id = $1 AND study_list_id = $2`,
		userID, listID,
	).Scan(&vote.ID, &vote.UserID, &vote.StudyListID, &voteType, &vote.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vote: %w", err)
	}

	vote.Type = model.VoteType(voteType)
	return vote, nil
}

// Create は投票行を挿入する。
// 同時初回投票の競合（unique_violation）はmodel.ErrVoteConflictに変換する。
func (r *PostgresVoteRepo) Create(ctx context.Context, vote *model.Vote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO votes (id, user_id, study_list_id, type, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		vote.ID, vote.UserID, vote.StudyListID, string(vote.Type), vote.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.ErrVoteConflict
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// UpdateType は投票種別をインプレースで更新する。
func (r *PostgresVoteRepo) UpdateType(ctx context.Context, id string, voteType model.VoteType) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE votes SET type = $1 WHERE id = $2`,
		string(voteType), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update vote type: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("vote not found: %s", id)
	}
	return nil
}

// Delete は投票行を削除する。
func (r *PostgresVoteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM votes WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

// CountByListGrouped は(リスト, 種別)ごとの投票数を単一のGROUP BYクエリで返す。
// 全投票行のフェッチを避けるため、集計はDB側で行う。
func (r *PostgresVoteRepo) CountByListGrouped(ctx context.Context, listIDs []string) ([]VoteCountRow, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT study_list_id, type, COUNT(*)
		 FROM votes WHERE study_list_id = ANY($1)
		 GROUP BY study_list_id, type`,
		pq.Array(listIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}
	defer rows.Close()

	var results []VoteCountRow
	for rows.Next() {
		var row VoteCountRow
		var voteType string
		if err := rows.Scan(&row.StudyListID, &voteType, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		row.Type = model.VoteType(voteType)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote counts: %w", err)
	}

	return results, nil
}

// ListByVoterAndLists は投票者の投票を指定リスト群に限定して返す。
// 返却ページ分のIDのみを渡すことを想定している。
func (r *PostgresVoteRepo) ListByVoterAndLists(ctx context.Context, userID string, listIDs []string) ([]*model.Vote, error) {
	if len(listIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, study_list_id, type, created_at
		 FROM votes WHERE user_id = $1 AND study_list_id = ANY($2)`,
		userID, pq.Array(listIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*model.Vote
	for rows.Next() {
		vote := &model.Vote{}
		var voteType string
		if err := rows.Scan(&vote.ID, &vote.UserID, &vote.StudyListID, &voteType, &vote.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		vote.Type = model.VoteType(voteType)
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}

	return votes, nil
}

// compile-time interface check
var _ VoteRepository = (*PostgresVoteRepo)(nil)
