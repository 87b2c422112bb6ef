package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
)

// AssignmentUpdate 单条名册分配更新（批量导入模式按块应用）
type AssignmentUpdate struct {
	StudentID  string
	BookID     *string
	BookNumber *string
	Notes      *string
}

// DistributionRepository 发放会话数据访问接口（Session Store）
//
// 名册不变式由本层保证：条目随会话整体创建、整体删除，
// UpdateAssignment/BatchUpdateAssignments 只更新已有条目、绝不插入
type DistributionRepository interface {
	// CreateWithRoster 在一个事务内写入会话（DRAFT）与每个学生的未分配名册条目
	CreateWithRoster(ctx context.Context, session *model.DistributionSession, studentIDs []string) error
	GetByID(ctx context.Context, id string) (*model.DistributionSession, error)
	List(ctx context.Context) ([]model.DistributionSession, error)
	// ListRoster 返回会话全部名册条目，按 student_id 升序
	ListRoster(ctx context.Context, sessionID string) ([]model.DistributionStudent, error)
	// UpdateAssignment 更新一条已有名册条目；(session, student) 不存在时返回
	// gorm.ErrRecordNotFound
	UpdateAssignment(ctx context.Context, sessionID, studentID string, bookID, bookNumber, notes *string) error
	// BatchUpdateAssignments 逐行应用一块更新；名册中不存在的行跳过，
	// 返回被跳过的学生 ID 列表
	BatchUpdateAssignments(ctx context.Context, sessionID string, updates []AssignmentUpdate) ([]string, error)
	SetStatus(ctx context.Context, sessionID, status string, distributedBy *string, finalizedAt *time.Time) error
	// Delete 删除会话及其名册与导入日志（撤销）
	Delete(ctx context.Context, sessionID string) error
	AppendImportLog(ctx context.Context, log *model.DistributionImportLog) error
	ListImportLogs(ctx context.Context, sessionID string) ([]model.DistributionImportLog, error)
}

type distributionRepo struct {
	db *gorm.DB
}

// NewDistributionRepo 创建 DistributionRepository 实例
func NewDistributionRepo(db *gorm.DB) DistributionRepository {
	return &distributionRepo{db: db}
}

func (r *distributionRepo) CreateWithRoster(ctx context.Context, session *model.DistributionSession, studentIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		entries := make([]model.DistributionStudent, 0, len(studentIDs))
		for _, sid := range studentIDs {
			entries = append(entries, model.DistributionStudent{
				SessionID: session.SessionID,
				StudentID: sid,
			})
		}
		return tx.Create(&entries).Error
	})
}

func (r *distributionRepo) GetByID(ctx context.Context, id string) (*model.DistributionSession, error) {
	var s model.DistributionSession
	err := r.db.WithContext(ctx).Where("session_id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *distributionRepo) List(ctx context.Context) ([]model.DistributionSession, error) {
	var sessions []model.DistributionSession
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

func (r *distributionRepo) ListRoster(ctx context.Context, sessionID string) ([]model.DistributionStudent, error) {
	var entries []model.DistributionStudent
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("student_id").
		Find(&entries).Error
	return entries, err
}

func (r *distributionRepo) UpdateAssignment(ctx context.Context, sessionID, studentID string, bookID, bookNumber, notes *string) error {
	res := r.db.WithContext(ctx).
		Model(&model.DistributionStudent{}).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		Updates(map[string]interface{}{
			"assigned_book_id":     bookID,
			"assigned_book_number": bookNumber,
			"notes":                notes,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *distributionRepo) BatchUpdateAssignments(ctx context.Context, sessionID string, updates []AssignmentUpdate) ([]string, error) {
	var missing []string
	for _, u := range updates {
		err := r.UpdateAssignment(ctx, sessionID, u.StudentID, u.BookID, u.BookNumber, u.Notes)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			missing = append(missing, u.StudentID)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

func (r *distributionRepo) SetStatus(ctx context.Context, sessionID, status string, distributedBy *string, finalizedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if distributedBy != nil {
		updates["distributed_by"] = distributedBy
	}
	if finalizedAt != nil {
		updates["finalized_at"] = finalizedAt
	}

	res := r.db.WithContext(ctx).
		Model(&model.DistributionSession{}).
		Where("session_id = ?", sessionID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *distributionRepo) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&model.DistributionImportLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).
			Delete(&model.DistributionStudent{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).
			Delete(&model.DistributionSession{}).Error
	})
}

func (r *distributionRepo) AppendImportLog(ctx context.Context, log *model.DistributionImportLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *distributionRepo) ListImportLogs(ctx context.Context, sessionID string) ([]model.DistributionImportLog, error) {
	var logs []model.DistributionImportLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("imported_at DESC").
		Find(&logs).Error
	return logs, err
}
