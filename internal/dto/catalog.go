package dto

// CreateBookRequest 图书入库
type CreateBookRequest struct {
	BookNumber string `json:"book_number" binding:"required"`
	Title      string `json:"title"       binding:"required"`
	Author     string `json:"author"`
	Subject    string `json:"subject"`
}

// BookResponse 图书信息
type BookResponse struct {
	ID         string `json:"book_id"`
	BookNumber string `json:"book_number"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Subject    string `json:"subject"`
	Available  bool   `json:"available"`
}

// DuplicateGroupResponse 疑似重复入库组（同 书名+作者 出现多条）
type DuplicateGroupResponse struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Count  int64  `json:"count"`
}

// CreateStudentRequest 学生登记
type CreateStudentRequest struct {
	AdmissionNo string `json:"admission_no" binding:"required"`
	Name        string `json:"name"         binding:"required"`
	ClassName   string `json:"class_name"   binding:"required"`
	Stream      string `json:"stream"       binding:"required"`
}

// StudentResponse 学生信息
type StudentResponse struct {
	ID          string `json:"student_id"`
	AdmissionNo string `json:"admission_no"`
	Name        string `json:"name"`
	ClassName   string `json:"class_name"`
	Stream      string `json:"stream"`
}
