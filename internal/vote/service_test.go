package vote

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// --- モック ---

// memVoteRepo は(投票者, リスト)ペアごとに高々1件の投票を保持するインメモリ実装。
// unique制約と同じ衝突動作を再現する。
type memVoteRepo struct {
	votes      map[string]*model.Vote // key: userID+"/"+listID
	writeCount int
	// forceConflictN は先頭N回のCreateを強制的に衝突させる（競合再現用）
	forceConflictN int
	// conflictInsert は衝突を強制するとき、先勝ちした側の行として保存される
	conflictInsert *model.Vote
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{votes: map[string]*model.Vote{}}
}

func (m *memVoteRepo) key(userID, listID string) string { return userID + "/" + listID }

func (m *memVoteRepo) FindByVoterAndList(ctx context.Context, userID, listID string) (*model.Vote, error) {
	return m.votes[m.key(userID, listID)], nil
}

func (m *memVoteRepo) Create(ctx context.Context, vote *model.Vote) error {
	if m.forceConflictN > 0 {
		m.forceConflictN--
		if m.conflictInsert != nil {
			m.votes[m.key(m.conflictInsert.UserID, m.conflictInsert.StudyListID)] = m.conflictInsert
			m.conflictInsert = nil
		}
		return model.ErrVoteConflict
	}
	k := m.key(vote.UserID, vote.StudyListID)
	if _, exists := m.votes[k]; exists {
		return model.ErrVoteConflict
	}
	m.votes[k] = vote
	m.writeCount++
	return nil
}

func (m *memVoteRepo) UpdateType(ctx context.Context, id string, voteType model.VoteType) error {
	for _, v := range m.votes {
		if v.ID == id {
			v.Type = voteType
			m.writeCount++
			return nil
		}
	}
	return nil
}

func (m *memVoteRepo) Delete(ctx context.Context, id string) error {
	for k, v := range m.votes {
		if v.ID == id {
			delete(m.votes, k)
			m.writeCount++
			return nil
		}
	}
	return nil
}

func (m *memVoteRepo) CountByListGrouped(ctx context.Context, listIDs []string) ([]repository.VoteCountRow, error) {
	return nil, nil
}

func (m *memVoteRepo) ListByVoterAndLists(ctx context.Context, userID string, listIDs []string) ([]*model.Vote, error) {
	return nil, nil
}

type mockListRepo struct {
	findPublicByIDFn func(ctx context.Context, id string) (*model.StudyList, error)
}

func (m *mockListRepo) FindPublicByID(ctx context.Context, id string) (*model.StudyList, error) {
	return m.findPublicByIDFn(ctx, id)
}
func (m *mockListRepo) ListPublicWithOwner(ctx context.Context, category *model.Category) ([]repository.DiscoveryListRow, error) {
	return nil, nil
}
func (m *mockListRepo) ListPrivateIDsByUser(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}
func (m *mockListRepo) FindByUserAndCopiedFrom(ctx context.Context, userID, copiedFromID string) (*model.StudyList, error) {
	return nil, nil
}
func (m *mockListRepo) SlugExists(ctx context.Context, userID, slug string) (bool, error) {
	return false, nil
}
func (m *mockListRepo) ListItems(ctx context.Context, listID string) ([]*model.StudyItem, error) {
	return nil, nil
}
func (m *mockListRepo) CreateCopy(ctx context.Context, list *model.StudyList, items []*model.StudyItem) error {
	return nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateDiscovery() { m.calls++ }

// --- テストヘルパー ---

const (
	testVoterID = "2b7f3a1e-8c4d-4f6a-9b2e-1d5c8e7f0a31"
	testListID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

func publicListRepo() *mockListRepo {
	return &mockListRepo{
		findPublicByIDFn: func(ctx context.Context, id string) (*model.StudyList, error) {
			return &model.StudyList{ID: id, IsPublic: true, CreatedAt: time.Now()}, nil
		},
	}
}

func apiErrCode(t *testing.T, err error) string {
	t.Helper()
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

// --- テスト ---

// 未認証の投票はAUTHENTICATION_REQUIREDになることを検証
func TestCastVote_Unauthenticated(t *testing.T) {
	svc := NewService(newMemVoteRepo(), publicListRepo(), nil, nil)

	err := svc.CastVote(t.Context(), "", testListID, "UP")
	if code := apiErrCode(t, err); code != model.ErrCodeAuthenticationRequired {
		t.Errorf("code = %q, want %q", code, model.ErrCodeAuthenticationRequired)
	}
}

// 不正なリストIDと投票種別はVALIDATION_FAILEDになることを検証
func TestCastVote_Validation(t *testing.T) {
	svc := NewService(newMemVoteRepo(), publicListRepo(), nil, nil)

	err := svc.CastVote(t.Context(), testVoterID, "not-a-uuid", "UP")
	if code := apiErrCode(t, err); code != model.ErrCodeValidationFailed {
		t.Errorf("invalid list id: code = %q, want VALIDATION_FAILED", code)
	}

	err = svc.CastVote(t.Context(), testVoterID, testListID, "SIDEWAYS")
	if code := apiErrCode(t, err); code != model.ErrCodeValidationFailed {
		t.Errorf("invalid vote type: code = %q, want VALIDATION_FAILED", code)
	}
}

// 非公開・不存在リストへの投票はNOT_FOUNDになることを検証
func TestCastVote_ListNotVisible(t *testing.T) {
	listRepo := &mockListRepo{
		findPublicByIDFn: func(ctx context.Context, id string) (*model.StudyList, error) {
			return nil, nil
		},
	}
	svc := NewService(newMemVoteRepo(), listRepo, nil, nil)

	err := svc.CastVote(t.Context(), testVoterID, testListID, "UP")
	if code := apiErrCode(t, err); code != model.ErrCodeNotFound {
		t.Errorf("code = %q, want %q", code, model.ErrCodeNotFound)
	}
}

// 初回キャストで投票行が挿入されることを検証
func TestCastVote_FirstCastInserts(t *testing.T) {
	repo := newMemVoteRepo()
	svc := NewService(repo, publicListRepo(), nil, nil)

	if err := svc.CastVote(t.Context(), testVoterID, testListID, "DOWN"); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	v := repo.votes[repo.key(testVoterID, testListID)]
	if v == nil {
		t.Fatal("vote should exist after first cast")
	}
	if v.Type != model.VoteDown {
		t.Errorf("vote type = %q, want DOWN", v.Type)
	}
}

// トグル則: 同種を2回キャストすると投票なしに戻る（ただし書き込みは2回発生する）
func TestCastVote_ToggleLaw(t *testing.T) {
	repo := newMemVoteRepo()
	svc := NewService(repo, publicListRepo(), nil, nil)

	if err := svc.CastVote(t.Context(), testVoterID, testListID, "UP"); err != nil {
		t.Fatalf("first cast error = %v", err)
	}
	if err := svc.CastVote(t.Context(), testVoterID, testListID, "UP"); err != nil {
		t.Fatalf("second cast error = %v", err)
	}

	if v := repo.votes[repo.key(testVoterID, testListID)]; v != nil {
		t.Errorf("vote should not exist after toggle, got %+v", v)
	}
	if repo.writeCount != 2 {
		t.Errorf("writeCount = %d, want 2 (insert + delete)", repo.writeCount)
	}
}

// 切り替え則: UP→DOWNは削除+挿入ではなくインプレース更新になる
func TestCastVote_SwitchLaw(t *testing.T) {
	repo := newMemVoteRepo()
	svc := NewService(repo, publicListRepo(), nil, nil)

	if err := svc.CastVote(t.Context(), testVoterID, testListID, "UP"); err != nil {
		t.Fatalf("first cast error = %v", err)
	}
	firstID := repo.votes[repo.key(testVoterID, testListID)].ID

	if err := svc.CastVote(t.Context(), testVoterID, testListID, "DOWN"); err != nil {
		t.Fatalf("switch cast error = %v", err)
	}

	v := repo.votes[repo.key(testVoterID, testListID)]
	if v == nil {
		t.Fatal("vote should still exist after switch")
	}
	if v.Type != model.VoteDown {
		t.Errorf("vote type = %q, want DOWN", v.Type)
	}
	if v.ID != firstID {
		t.Error("switch should update in place, not delete and re-insert")
	}
}

// 不変条件: 任意のキャスト列のあと、1ペアにつき投票行は高々1件
func TestCastVote_AtMostOneVotePerPair(t *testing.T) {
	repo := newMemVoteRepo()
	svc := NewService(repo, publicListRepo(), nil, nil)

	sequence := []string{"UP", "DOWN", "DOWN", "UP", "UP", "DOWN", "UP"}
	for i, vt := range sequence {
		if err := svc.CastVote(t.Context(), testVoterID, testListID, vt); err != nil {
			t.Fatalf("cast %d (%s) error = %v", i, vt, err)
		}
		if len(repo.votes) > 1 {
			t.Fatalf("after cast %d: %d votes exist for one pair", i, len(repo.votes))
		}
	}
}

// 同時初回投票の競合は1回の再試行で吸収されることを検証
func TestCastVote_ConflictRetriesOnce(t *testing.T) {
	repo := newMemVoteRepo()
	repo.forceConflictN = 1
	svc := NewService(repo, publicListRepo(), nil, nil)

	// 1回目のCreateは衝突するが、再試行の読み直しで遷移し直して成功する
	if err := svc.CastVote(t.Context(), testVoterID, testListID, "UP"); err != nil {
		t.Fatalf("CastVote() should absorb a single conflict, got error = %v", err)
	}
}

// 同一ユーザーがUPを二重送信して衝突した場合、後着の再試行が
// 先勝ちしたUP行を読み直してトグル解除し、投票なしに落ち着くことを検証
func TestCastVote_DuplicateSubmitResolvesAsToggle(t *testing.T) {
	repo := newMemVoteRepo()
	repo.forceConflictN = 1
	repo.conflictInsert = &model.Vote{
		ID:          "winner-vote",
		UserID:      testVoterID,
		StudyListID: testListID,
		Type:        model.VoteUp,
		CreatedAt:   time.Now(),
	}
	svc := NewService(repo, publicListRepo(), nil, nil)

	if err := svc.CastVote(t.Context(), testVoterID, testListID, "UP"); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if v := repo.votes[repo.key(testVoterID, testListID)]; v != nil {
		t.Errorf("duplicate UP should toggle the winning vote off, got %+v", v)
	}
}

// 再試行でも衝突が続く場合はCONFLICTを返すことを検証
func TestCastVote_PersistentConflict(t *testing.T) {
	repo := newMemVoteRepo()
	repo.forceConflictN = 2
	svc := NewService(repo, publicListRepo(), nil, nil)

	err := svc.CastVote(t.Context(), testVoterID, testListID, "UP")
	if code := apiErrCode(t, err); code != model.ErrCodeConflict {
		t.Errorf("code = %q, want %q", code, model.ErrCodeConflict)
	}
}

// 書き込み成功のたびにキャッシュ無効化シグナルが出ることを検証
func TestCastVote_InvalidatesCacheOnEveryWrite(t *testing.T) {
	repo := newMemVoteRepo()
	inv := &mockInvalidator{}
	svc := NewService(repo, publicListRepo(), inv, nil)

	_ = svc.CastVote(t.Context(), testVoterID, testListID, "UP")
	_ = svc.CastVote(t.Context(), testVoterID, testListID, "UP")

	if inv.calls != 2 {
		t.Errorf("invalidator calls = %d, want 2", inv.calls)
	}
}

// 失敗時はキャッシュ無効化シグナルが出ないことを検証
func TestCastVote_NoInvalidationOnFailure(t *testing.T) {
	inv := &mockInvalidator{}
	svc := NewService(newMemVoteRepo(), publicListRepo(), inv, nil)

	_ = svc.CastVote(t.Context(), "", testListID, "UP")

	if inv.calls != 0 {
		t.Errorf("invalidator calls = %d, want 0", inv.calls)
	}
}
