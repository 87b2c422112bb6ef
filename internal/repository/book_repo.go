package repository

import (
	"context"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
)

// BookDuplicateGroup 按 (title, author) 聚合的疑似重复书目组
type BookDuplicateGroup struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Count  int64  `json:"count"`
}

// BookRepository 书目数据访问接口（发放引擎的 Catalog 协作方）
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id string) (*model.Book, error)
	GetByNumber(ctx context.Context, number string) (*model.Book, error)
	List(ctx context.Context, availableOnly bool) ([]model.Book, error)
	// AvailableNumberMap 一次性加载全部可用书目的 编号→ID 映射（批量导入模式用）
	AvailableNumberMap(ctx context.Context) (map[string]string, error)
	MarkUnavailable(ctx context.Context, ids []string) error
	MarkAvailable(ctx context.Context, id string) error
	// DuplicateGroups 全馆范围按 (title, author) 分组，返回 count > 1 的组
	DuplicateGroups(ctx context.Context) ([]BookDuplicateGroup, error)
}

type bookRepo struct {
	db *gorm.DB
}

// NewBookRepo 创建 BookRepository 实例
func NewBookRepo(db *gorm.DB) BookRepository {
	return &bookRepo{db: db}
}

func (r *bookRepo) Create(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *bookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	var b model.Book
	err := r.db.WithContext(ctx).Where("book_id = ?", id).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepo) GetByNumber(ctx context.Context, number string) (*model.Book, error) {
	var b model.Book
	err := r.db.WithContext(ctx).Where("book_number = ?", number).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepo) List(ctx context.Context, availableOnly bool) ([]model.Book, error) {
	var books []model.Book
	q := r.db.WithContext(ctx).Order("book_number")
	if availableOnly {
		q = q.Where("available = ?", true)
	}
	err := q.Find(&books).Error
	return books, err
}

func (r *bookRepo) AvailableNumberMap(ctx context.Context) (map[string]string, error) {
	var books []model.Book
	err := r.db.WithContext(ctx).
		Select("book_id", "book_number").
		Where("available = ?", true).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(books))
	for _, b := range books {
		m[b.BookNumber] = b.BookID
	}
	return m, nil
}

func (r *bookRepo) MarkUnavailable(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Book{}).
		Where("book_id IN ?", ids).
		Update("available", false).Error
}

func (r *bookRepo) MarkAvailable(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Book{}).
		Where("book_id = ?", id).
		Update("available", true).Error
}

func (r *bookRepo) DuplicateGroups(ctx context.Context) ([]BookDuplicateGroup, error) {
	var groups []BookDuplicateGroup
	err := r.db.WithContext(ctx).
		Model(&model.Book{}).
		Select("title, author, COUNT(*) AS count").
		Group("title, author").
		Having("COUNT(*) > 1").
		Order("count DESC, title").
		Scan(&groups).Error
	return groups, err
}
