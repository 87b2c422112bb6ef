package model

import "time"

// ── 发放会话状态 ──
// 状态枚举统一为 DRAFT/IMPORTED/POSTED（旧版 schema 中的 IN_PROGRESS/FINALIZED
// 从未被业务代码写入，迁移时映射为 IMPORTED/POSTED，见 000001_init_schema.up.sql）

const (
	SessionStatusDraft    = "DRAFT"
	SessionStatusImported = "IMPORTED"
	SessionStatusPosted   = "POSTED"
)

// ── 导入结果状态 ──

const (
	ImportStatusSuccess = "SUCCESS"
	ImportStatusPartial = "PARTIAL"
)

// DistributionSession 发放会话表 — 对应 distribution_sessions
// 一次会话面向固定的班级/流/学科/学期名册，经 导入 → 过账 流转
type DistributionSession struct {
	SessionID     string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	ClassName     string     `gorm:"column:class_name;type:varchar(50);not null"    json:"class_name"`
	Stream        string     `gorm:"type:varchar(50);not null"                      json:"stream"`
	Subject       string     `gorm:"type:varchar(100);not null"                     json:"subject"`
	Term          string     `gorm:"type:varchar(50);not null"                      json:"term"`
	CreatedBy     string     `gorm:"type:varchar(100);not null"                     json:"created_by"`
	DistributedBy *string    `gorm:"type:varchar(100)"                              json:"distributed_by,omitempty"`
	Status        string     `gorm:"type:varchar(20);not null;default:'DRAFT'"      json:"status"` // DRAFT | IMPORTED | POSTED
	FinalizedAt   *time.Time `gorm:""                                               json:"finalized_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
	UpdatedBy     *string    `gorm:"type:varchar(100)"                              json:"updated_by,omitempty"`
}

// TableName 指定表名
func (DistributionSession) TableName() string { return "distribution_sessions" }

// DistributionStudent 发放名册条目 — 对应 distribution_students
// 复合主键 (SessionID, StudentID)：会话创建时整体写入，之后仅被导入更新，
// 随会话一起删除；导入绝不新增或删除条目
//
// AssignedBookNumber 在书号未入库（pending）时仍然保留原始编号，
// AssignedBookID 此时为空，Notes 记录 "Not in system"
type DistributionStudent struct {
	SessionID          string    `gorm:"type:uuid;primaryKey"  json:"session_id"`
	StudentID          string    `gorm:"type:uuid;primaryKey"  json:"student_id"`
	AssignedBookID     *string   `gorm:"type:uuid"             json:"assigned_book_id,omitempty"`
	AssignedBookNumber *string   `gorm:"type:varchar(50)"      json:"assigned_book_number,omitempty"`
	Notes              *string   `gorm:"type:varchar(255)"     json:"notes,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (DistributionStudent) TableName() string { return "distribution_students" }

// DistributionImportLog 导入日志表 — 对应 distribution_import_logs
type DistributionImportLog struct {
	LogID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	SessionID  string    `gorm:"type:uuid;not null;index"                       json:"session_id"`
	FileName   string    `gorm:"type:varchar(255);not null"                     json:"file_name"`
	ImportedBy string    `gorm:"type:varchar(100);not null"                     json:"imported_by"`
	ImportedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"imported_at"`
	Status     string    `gorm:"type:varchar(20);not null"                      json:"status"` // SUCCESS | PARTIAL
	Message    string    `gorm:"type:text;not null;default:''"                  json:"message"`
}

// TableName 指定表名
func (DistributionImportLog) TableName() string { return "distribution_import_logs" }
