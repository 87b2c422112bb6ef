package repository

import (
	"context"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
)

// StudentRepository 学生数据访问接口（发放引擎的名册协作方）
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByAdmissionNo(ctx context.Context, admissionNo string) (*model.Student, error)
	List(ctx context.Context) ([]model.Student, error)
	// ListIDsByClassAndStream 解析名册：返回指定班级+流的全部学生 ID，按 ID 升序
	ListIDsByClassAndStream(ctx context.Context, className, stream string) ([]string, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).Where("student_id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) GetByAdmissionNo(ctx context.Context, admissionNo string) (*model.Student, error) {
	var s model.Student
	err := r.db.WithContext(ctx).Where("admission_no = ?", admissionNo).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *studentRepo) List(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).Order("admission_no").Find(&students).Error
	return students, err
}

func (r *studentRepo) ListIDsByClassAndStream(ctx context.Context, className, stream string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("class_name = ? AND stream = ?", className, stream).
		Order("student_id").
		Pluck("student_id", &ids).Error
	return ids, err
}
