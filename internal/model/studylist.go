// Package model はドメインモデルを定義する。
package model

import "time"

// StudyList は学習リストを表す。
// CopiedFromIDは他ユーザーの公開リストから複製された場合の複製元を記録する
// nullableな自己参照。複製の複製が可能なためDAGを形成するが、循環は発生しない。
type StudyList struct {
	ID           string
	UserID       string
	Title        string
	Slug         string
	Description  *string
	Category     Category
	IsPublic     bool
	Position     int
	CopiedFromID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StudyItem は学習リスト内の1項目を表す。
type StudyItem struct {
	ID          string
	StudyListID string
	Title       string
	Notes       *string
	URL         *string
	Position    int
	Completed   bool
}

// Category は学習リストのカテゴリを表す。固定の列挙値のみ有効。
type Category string

// 定義済みカテゴリ
const (
	CategoryProgramming Category = "programming"
	CategoryDesign      Category = "design"
	CategoryBusiness    Category = "business"
	CategoryScience     Category = "science"
	CategoryLanguage    Category = "language"
	CategoryMusic       Category = "music"
	CategoryHealth      Category = "health"
	CategoryWriting     Category = "writing"
	CategoryPersonal    Category = "personal"
	CategoryOther       Category = "other"
)

// Categories は全カテゴリの一覧。表示順を兼ねる。
var Categories = []Category{
	CategoryProgramming,
	CategoryDesign,
	CategoryBusiness,
	CategoryScience,
	CategoryLanguage,
	CategoryMusic,
	CategoryHealth,
	CategoryWriting,
	CategoryPersonal,
	CategoryOther,
}

// IsValidCategory は文字列が定義済みカテゴリと完全一致するかを返す。
// 発見フィードのカテゴリフィルタは不一致を黙って無視するため、
// この関数はエラーではなくboolを返す。
func IsValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}
