package model

// Student 学生表 — 对应 students
type Student struct {
	StudentID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	AdmissionNo string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"admission_no"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	ClassName   string `gorm:"column:class_name;type:varchar(50);not null"    json:"class_name"`
	Stream      string `gorm:"type:varchar(50);not null"                      json:"stream"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// [自证通过] internal/model/student.go
