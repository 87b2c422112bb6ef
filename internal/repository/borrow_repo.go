package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
)

// BorrowRecordRepository 借阅台账数据访问接口（发放引擎的 Ledger 协作方）
type BorrowRecordRepository interface {
	Create(ctx context.Context, record *model.BorrowRecord) error
	// ReturnOne 标准单册归还：关闭未归还台账并恢复书目可用性
	// 找不到未归还记录时返回 gorm.ErrRecordNotFound
	ReturnOne(ctx context.Context, studentID, bookID, condition string, fine float64, returnedBy string) error
	ListOpenByStudent(ctx context.Context, studentID string) ([]model.BorrowRecord, error)
	CountOpenByBook(ctx context.Context, bookID string) (int64, error)
}

type borrowRecordRepo struct {
	db *gorm.DB
}

// NewBorrowRecordRepo 创建 BorrowRecordRepository 实例
func NewBorrowRecordRepo(db *gorm.DB) BorrowRecordRepository {
	return &borrowRecordRepo{db: db}
}

func (r *borrowRecordRepo) Create(ctx context.Context, record *model.BorrowRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *borrowRecordRepo) ReturnOne(ctx context.Context, studentID, bookID, condition string, fine float64, returnedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.BorrowRecord
		err := tx.
			Where("student_id = ? AND book_id = ? AND returned_on IS NULL", studentID, bookID).
			Order("borrowed_on").
			First(&record).Error
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"returned_on": now,
			"condition":   condition,
			"fine":        fine,
			"returned_by": returnedBy,
			"updated_at":  now,
		}
		if err := tx.Model(&record).Updates(updates).Error; err != nil {
			return err
		}

		return tx.Model(&model.Book{}).
			Where("book_id = ?", bookID).
			Update("available", true).Error
	})
}

func (r *borrowRecordRepo) ListOpenByStudent(ctx context.Context, studentID string) ([]model.BorrowRecord, error) {
	var records []model.BorrowRecord
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("student_id = ? AND returned_on IS NULL", studentID).
		Order("borrowed_on").
		Find(&records).Error
	return records, err
}

func (r *borrowRecordRepo) CountOpenByBook(ctx context.Context, bookID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.BorrowRecord{}).
		Where("book_id = ? AND returned_on IS NULL", bookID).
		Count(&count).Error
	return count, err
}
