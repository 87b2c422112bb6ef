package service

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
)

// ── 严格模式 ──

func TestImportReconciler_Strict_EmptyNumberIsNoop(t *testing.T) {
	f := setupTestDistributionService()
	sessionID := createTestSession(t, f)

	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModeStrict,
		Rows: []dto.AssignmentRow{
			{StudentID: "S1", BookNumber: ""},
			{StudentID: "S2", BookNumber: "  "},
		},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if len(outcome.Errors) != 0 || outcome.Status != model.ImportStatusSuccess {
		t.Errorf("空书号行不应产生错误: %+v", outcome)
	}
	if rosterEntry(t, f, sessionID, "S1").AssignedBookNumber != nil {
		t.Error("空书号行应保持未分配")
	}
}

func TestImportReconciler_Strict_UnavailableBookRejected(t *testing.T) {
	f := setupTestDistributionService()
	f.bookRepo.addBook("B200", "Chemistry", "L. Otieno", false)
	sessionID := createTestSession(t, f)

	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModeStrict,
		Rows: []dto.AssignmentRow{{StudentID: "S1", BookNumber: "B200"}},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if len(outcome.Errors) != 1 || outcome.Errors[0] != "Invalid book: B200" {
		t.Errorf("不可用书目应报 Invalid book，实际: %v", outcome.Errors)
	}
	if rosterEntry(t, f, sessionID, "S1").AssignedBookID != nil {
		t.Error("不可用书目不应写入名册")
	}
}

// ── 宽松模式 ──

func TestImportReconciler_Permissive_DuplicateRule(t *testing.T) {
	f := setupTestDistributionService()
	f.bookRepo.addBook("B100", "Advanced Mathematics", "K. Mwangi", true)
	sessionID := createTestSession(t, f)

	// B100 在文件内出现两次：两行都排除、都计入 conflicts，
	// 与书号是否入库无关（B777 未入库同理）
	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModePermissive,
		Rows: []dto.AssignmentRow{
			{StudentID: "S1", BookNumber: "B100"},
			{StudentID: "S2", BookNumber: "B100"},
		},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if outcome.Conflicts != 2 || outcome.DuplicateBookNumbers != 2 {
		t.Errorf("期望 conflicts=2 duplicate=2，实际 %+v", outcome)
	}
	if outcome.ValidBooks != 0 {
		t.Errorf("重复书号不应产生有效分配，实际=%d", outcome.ValidBooks)
	}
	if rosterEntry(t, f, sessionID, "S1").AssignedBookID != nil ||
		rosterEntry(t, f, sessionID, "S2").AssignedBookID != nil {
		t.Error("重复书号的两行都应保持未分配")
	}
	if outcome.Status != model.ImportStatusPartial {
		t.Errorf("期望Status=PARTIAL，实际=%s", outcome.Status)
	}
}

func TestImportReconciler_Permissive_PendingRule(t *testing.T) {
	f := setupTestDistributionService()
	sessionID := createTestSession(t, f)

	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModePermissive,
		Rows: []dto.AssignmentRow{{StudentID: "S1", BookNumber: "B777"}},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if outcome.PendingBooks != 1 || outcome.Conflicts != 0 {
		t.Errorf("期望 pending=1 conflicts=0，实际 %+v", outcome)
	}

	entry := rosterEntry(t, f, sessionID, "S1")
	if entry.AssignedBookID != nil {
		t.Error("未入库书号不应解析出 BookID")
	}
	if entry.AssignedBookNumber == nil || *entry.AssignedBookNumber != "B777" {
		t.Error("未入库书号应保留原始编号")
	}
	if entry.Notes == nil || *entry.Notes != "Not in system" {
		t.Errorf("期望Notes=Not in system，实际: %v", entry.Notes)
	}
}

func TestImportReconciler_Permissive_TalliesAndMessage(t *testing.T) {
	f := setupTestDistributionService()
	f.bookRepo.addBook("B100", "Advanced Mathematics", "K. Mwangi", true)
	f.bookRepo.addBook("B200", "Chemistry", "L. Otieno", false)
	sessionID := createTestSession(t, f)

	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModePermissive,
		Rows: []dto.AssignmentRow{
			{StudentID: "S1", BookNumber: "B100"}, // 有效
			{StudentID: "S2", BookNumber: "B777"}, // pending
			{StudentID: "S3", BookNumber: "B200"}, // 不可用 → 冲突
			{StudentID: "", BookNumber: "B300"},   // 空学生 → 冲突
		},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if outcome.ValidBooks != 1 || outcome.PendingBooks != 1 || outcome.Conflicts != 2 {
		t.Errorf("期望 {1,1,2}，实际 %+v", outcome)
	}
	if outcome.Message != "Valid: 1, Pending: 1, Conflicts: 2" {
		t.Errorf("消息不符: %s", outcome.Message)
	}
	if outcome.Status != model.ImportStatusPartial {
		t.Errorf("期望Status=PARTIAL，实际=%s", outcome.Status)
	}
}

func TestImportReconciler_Permissive_ClearAssignment(t *testing.T) {
	f := setupTestDistributionService()
	f.bookRepo.addBook("B100", "Advanced Mathematics", "K. Mwangi", true)
	sessionID := createTestSession(t, f)
	ctx := context.Background()

	if _, err := f.svc.Import(ctx, sessionID, &dto.ImportRequest{
		Mode: dto.ImportModePermissive,
		Rows: []dto.AssignmentRow{{StudentID: "S1", BookNumber: "B100"}},
	}, "admin"); err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	// 空书号行清除已有分配
	if _, err := f.svc.Import(ctx, sessionID, &dto.ImportRequest{
		Mode: dto.ImportModePermissive,
		Rows: []dto.AssignmentRow{{StudentID: "S1", BookNumber: ""}},
	}, "admin"); err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	entry := rosterEntry(t, f, sessionID, "S1")
	if entry.AssignedBookID != nil || entry.AssignedBookNumber != nil {
		t.Error("空书号行应清除分配")
	}
}

// ── 批量严格模式 ──

func TestImportReconciler_Batched_ConsumesNumberMap(t *testing.T) {
	f := setupTestDistributionService()
	b100 := f.bookRepo.addBook("B100", "Advanced Mathematics", "K. Mwangi", true)
	sessionID := createTestSession(t, f)

	// 同文件内第二次引用 B100：映射条目已被取走，视同不可用
	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModeBatched,
		Rows: []dto.AssignmentRow{
			{StudentID: "S1", BookNumber: "B100"},
			{StudentID: "S2", BookNumber: "B100"},
		},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if len(outcome.Errors) != 1 || outcome.Errors[0] != "Invalid book: B100" {
		t.Errorf("第二次引用应报 Invalid book: B100，实际: %v", outcome.Errors)
	}
	e1 := rosterEntry(t, f, sessionID, "S1")
	if e1.AssignedBookID == nil || *e1.AssignedBookID != b100.BookID {
		t.Error("首行应成功分配 B100")
	}
	if rosterEntry(t, f, sessionID, "S2").AssignedBookID != nil {
		t.Error("第二行不应有分配")
	}
}

func TestImportReconciler_Batched_ChunkedLargeRoster(t *testing.T) {
	bookRepo := newMockBookRepo()
	distRepo := newMockDistributionRepo()
	repo := &repository.Repository{
		Book:         bookRepo,
		Student:      newMockStudentRepo(),
		Borrow:       newMockBorrowRepo(bookRepo),
		Distribution: distRepo,
	}
	// 块大小 10，250 行名册：验证跨块应用
	svc := NewDistributionService(repo, NewLocalSessionLocker(), 10, zap.NewNop())

	const n = 250
	studentIDs := make([]string, 0, n)
	rows := make([]dto.AssignmentRow, 0, n)
	for i := 0; i < n; i++ {
		sid := fmt.Sprintf("S%03d", i)
		number := fmt.Sprintf("B%03d", i)
		bookRepo.addBook(number, "Physics", "P. Kamau", true)
		studentIDs = append(studentIDs, sid)
		rows = append(rows, dto.AssignmentRow{StudentID: sid, BookNumber: number})
	}

	ctx := context.Background()
	resp, err := svc.Create(ctx, &dto.CreateSessionRequest{
		ClassName:  "Form 3",
		Stream:     "Yellow",
		Subject:    "Physics",
		Term:       "Term 1",
		StudentIDs: studentIDs,
	}, "admin")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	outcome, err := svc.Import(ctx, resp.ID, &dto.ImportRequest{
		Mode: dto.ImportModeBatched,
		Rows: rows,
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if len(outcome.Errors) != 0 || outcome.ValidBooks != n {
		t.Errorf("期望全部 %d 行成功，实际 valid=%d errors=%v", n, outcome.ValidBooks, outcome.Errors)
	}
	summary, err := svc.Summary(ctx, resp.ID)
	if err != nil {
		t.Fatalf("Summary 应成功: %v", err)
	}
	if summary.AssignedBooks != n || summary.MissingBooks != 0 {
		t.Errorf("期望 %d 条分配，实际 %+v", n, summary)
	}
}

func TestImportReconciler_Batched_UnknownStudentAccumulated(t *testing.T) {
	f := setupTestDistributionService()
	f.bookRepo.addBook("B100", "Advanced Mathematics", "K. Mwangi", true)
	f.bookRepo.addBook("B101", "Advanced Mathematics II", "K. Mwangi", true)
	sessionID := createTestSession(t, f)

	outcome, err := f.svc.Import(context.Background(), sessionID, &dto.ImportRequest{
		Mode: dto.ImportModeBatched,
		Rows: []dto.AssignmentRow{
			{StudentID: "S1", BookNumber: "B100"},
			{StudentID: "S9", BookNumber: "B101"}, // 不在名册
		},
	}, "admin")
	if err != nil {
		t.Fatalf("Import 应成功: %v", err)
	}

	if len(outcome.Errors) != 1 || outcome.Errors[0] != "Invalid student: S9" {
		t.Errorf("名册外学生应累积错误，实际: %v", outcome.Errors)
	}
	if outcome.ValidBooks != 1 {
		t.Errorf("期望 valid=1，实际=%d", outcome.ValidBooks)
	}
}
