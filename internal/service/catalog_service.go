package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
)

// ── 馆藏模块业务错误 ──

var (
	ErrBookNumberRequired = errors.New("馆藏编号与书名不能为空")
	ErrBookNumberTaken    = errors.New("馆藏编号已存在")
	ErrAdmissionNoTaken   = errors.New("学号已存在")
)

// CatalogService 馆藏与学生登记业务接口
type CatalogService interface {
	CreateBook(ctx context.Context, req *dto.CreateBookRequest, callerID string) (*dto.BookResponse, error)
	ListBooks(ctx context.Context, availableOnly bool) ([]dto.BookResponse, error)
	// DetectDuplicates 全馆扫描：按 (书名, 作者) 分组，报告出现多于一次的组
	DetectDuplicates(ctx context.Context) ([]dto.DuplicateGroupResponse, error)
	CreateStudent(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error)
	ListStudents(ctx context.Context) ([]dto.StudentResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

// ────────────────────── Book ──────────────────────

func (s *catalogService) CreateBook(ctx context.Context, req *dto.CreateBookRequest, callerID string) (*dto.BookResponse, error) {
	number := strings.TrimSpace(req.BookNumber)
	title := strings.TrimSpace(req.Title)
	if number == "" || title == "" {
		return nil, ErrBookNumberRequired
	}

	if _, err := s.repo.Book.GetByNumber(ctx, number); err == nil {
		return nil, ErrBookNumberTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	book := &model.Book{
		BookNumber: number,
		Title:      title,
		Author:     strings.TrimSpace(req.Author),
		Subject:    strings.TrimSpace(req.Subject),
		Available:  true,
	}
	book.CreatedBy = &callerID
	book.UpdatedBy = &callerID

	if err := s.repo.Book.Create(ctx, book); err != nil {
		s.logger.Error("图书入库失败", zap.String("book_number", number), zap.Error(err))
		return nil, err
	}

	return toBookResponse(book), nil
}

func (s *catalogService) ListBooks(ctx context.Context, availableOnly bool) ([]dto.BookResponse, error) {
	books, err := s.repo.Book.List(ctx, availableOnly)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.BookResponse, 0, len(books))
	for i := range books {
		resp = append(resp, *toBookResponse(&books[i]))
	}
	return resp, nil
}

func (s *catalogService) DetectDuplicates(ctx context.Context) ([]dto.DuplicateGroupResponse, error) {
	groups, err := s.repo.Book.DuplicateGroups(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.DuplicateGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, dto.DuplicateGroupResponse{Title: g.Title, Author: g.Author, Count: g.Count})
	}
	return resp, nil
}

// ────────────────────── Student ──────────────────────

func (s *catalogService) CreateStudent(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	if _, err := s.repo.Student.GetByAdmissionNo(ctx, req.AdmissionNo); err == nil {
		return nil, ErrAdmissionNoTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	student := &model.Student{
		AdmissionNo: strings.TrimSpace(req.AdmissionNo),
		Name:        strings.TrimSpace(req.Name),
		ClassName:   strings.TrimSpace(req.ClassName),
		Stream:      strings.TrimSpace(req.Stream),
	}
	student.CreatedBy = &callerID
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		s.logger.Error("学生登记失败", zap.String("admission_no", req.AdmissionNo), zap.Error(err))
		return nil, err
	}

	return toStudentResponse(student), nil
}

func (s *catalogService) ListStudents(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := s.repo.Student.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		resp = append(resp, *toStudentResponse(&students[i]))
	}
	return resp, nil
}

// ── 内部辅助 ──

func toBookResponse(b *model.Book) *dto.BookResponse {
	return &dto.BookResponse{
		ID:         b.BookID,
		BookNumber: b.BookNumber,
		Title:      b.Title,
		Author:     b.Author,
		Subject:    b.Subject,
		Available:  b.Available,
	}
}

func toStudentResponse(s *model.Student) *dto.StudentResponse {
	return &dto.StudentResponse{
		ID:          s.StudentID,
		AdmissionNo: s.AdmissionNo,
		Name:        s.Name,
		ClassName:   s.ClassName,
		Stream:      s.Stream,
	}
}
