package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"shelfmate/backend/internal/model"
	"shelfmate/backend/internal/repository"
)

// ── Mock BookRepository ──

type mockBookRepo struct {
	books map[string]*model.Book // key: BookID
	seq   int
}

func newMockBookRepo() *mockBookRepo {
	return &mockBookRepo{books: make(map[string]*model.Book)}
}

func (m *mockBookRepo) addBook(number, title, author string, available bool) *model.Book {
	m.seq++
	book := &model.Book{
		BookID:     fmt.Sprintf("book-%03d", m.seq),
		BookNumber: number,
		Title:      title,
		Author:     author,
		Available:  available,
	}
	m.books[book.BookID] = book
	return book
}

func (m *mockBookRepo) Create(_ context.Context, book *model.Book) error {
	if book.BookID == "" {
		m.seq++
		book.BookID = fmt.Sprintf("book-%03d", m.seq)
	}
	m.books[book.BookID] = book
	return nil
}

func (m *mockBookRepo) GetByID(_ context.Context, id string) (*model.Book, error) {
	if b, ok := m.books[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookRepo) GetByNumber(_ context.Context, number string) (*model.Book, error) {
	for _, b := range m.books {
		if b.BookNumber == number {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookRepo) List(_ context.Context, availableOnly bool) ([]model.Book, error) {
	var result []model.Book
	for _, b := range m.books {
		if availableOnly && !b.Available {
			continue
		}
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookNumber < result[j].BookNumber })
	return result, nil
}

func (m *mockBookRepo) AvailableNumberMap(_ context.Context) (map[string]string, error) {
	result := make(map[string]string)
	for _, b := range m.books {
		if b.Available {
			result[b.BookNumber] = b.BookID
		}
	}
	return result, nil
}

func (m *mockBookRepo) MarkUnavailable(_ context.Context, ids []string) error {
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			b.Available = false
		}
	}
	return nil
}

func (m *mockBookRepo) MarkAvailable(_ context.Context, id string) error {
	if b, ok := m.books[id]; ok {
		b.Available = true
	}
	return nil
}

func (m *mockBookRepo) DuplicateGroups(_ context.Context) ([]repository.BookDuplicateGroup, error) {
	counts := make(map[string]int64)
	for _, b := range m.books {
		counts[b.Title+"\x00"+b.Author]++
	}
	var groups []repository.BookDuplicateGroup
	for key, n := range counts {
		if n > 1 {
			parts := strings.SplitN(key, "\x00", 2)
			groups = append(groups, repository.BookDuplicateGroup{Title: parts[0], Author: parts[1], Count: n})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) addStudent(id, admissionNo, name, className, stream string) *model.Student {
	s := &model.Student{
		StudentID:   id,
		AdmissionNo: admissionNo,
		Name:        name,
		ClassName:   className,
		Stream:      stream,
	}
	m.students[id] = s
	return s
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.StudentID == "" {
		student.StudentID = "stu-" + student.AdmissionNo
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByAdmissionNo(_ context.Context, admissionNo string) (*model.Student, error) {
	for _, s := range m.students {
		if s.AdmissionNo == admissionNo {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) List(_ context.Context) ([]model.Student, error) {
	var result []model.Student
	for _, s := range m.students {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AdmissionNo < result[j].AdmissionNo })
	return result, nil
}

func (m *mockStudentRepo) ListIDsByClassAndStream(_ context.Context, className, stream string) ([]string, error) {
	var ids []string
	for _, s := range m.students {
		if s.ClassName == className && s.Stream == stream {
			ids = append(ids, s.StudentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Mock BorrowRecordRepository ──

type mockBorrowRepo struct {
	records []*model.BorrowRecord
	books   *mockBookRepo // ReturnOne 要同步恢复书目可用性
	seq     int

	// createErr 非空时 Create 返回该错误（原子性测试用）
	createErr error
	// returnErrFor 指定 bookID 的归还失败（部分失败测试用）
	returnErrFor map[string]error
}

func newMockBorrowRepo(books *mockBookRepo) *mockBorrowRepo {
	return &mockBorrowRepo{books: books, returnErrFor: make(map[string]error)}
}

func (m *mockBorrowRepo) Create(_ context.Context, record *model.BorrowRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if record.RecordID == "" {
		record.RecordID = fmt.Sprintf("rec-%03d", m.seq)
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockBorrowRepo) ReturnOne(_ context.Context, studentID, bookID, condition string, fine float64, returnedBy string) error {
	if err, ok := m.returnErrFor[bookID]; ok {
		return err
	}
	for _, r := range m.records {
		if r.StudentID == studentID && r.BookID == bookID && r.ReturnedOn == nil {
			now := time.Now()
			r.ReturnedOn = &now
			r.Condition = &condition
			r.Fine = fine
			r.ReturnedBy = &returnedBy
			if m.books != nil {
				_ = m.books.MarkAvailable(context.Background(), bookID)
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockBorrowRepo) ListOpenByStudent(_ context.Context, studentID string) ([]model.BorrowRecord, error) {
	var result []model.BorrowRecord
	for _, r := range m.records {
		if r.StudentID == studentID && r.ReturnedOn == nil {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockBorrowRepo) CountOpenByBook(_ context.Context, bookID string) (int64, error) {
	var count int64
	for _, r := range m.records {
		if r.BookID == bookID && r.ReturnedOn == nil {
			count++
		}
	}
	return count, nil
}

// ── Mock DistributionRepository ──

type mockDistributionRepo struct {
	sessions map[string]*model.DistributionSession
	roster   map[string]*model.DistributionStudent // key: sessionID + "|" + studentID
	logs     []*model.DistributionImportLog
	seq      int
}

func newMockDistributionRepo() *mockDistributionRepo {
	return &mockDistributionRepo{
		sessions: make(map[string]*model.DistributionSession),
		roster:   make(map[string]*model.DistributionStudent),
	}
}

func rosterKey(sessionID, studentID string) string {
	return sessionID + "|" + studentID
}

func (m *mockDistributionRepo) CreateWithRoster(_ context.Context, session *model.DistributionSession, studentIDs []string) error {
	if session.SessionID == "" {
		m.seq++
		session.SessionID = fmt.Sprintf("sess-%03d", m.seq)
	}
	session.CreatedAt = time.Now()
	m.sessions[session.SessionID] = session
	for _, sid := range studentIDs {
		m.roster[rosterKey(session.SessionID, sid)] = &model.DistributionStudent{
			SessionID: session.SessionID,
			StudentID: sid,
		}
	}
	return nil
}

func (m *mockDistributionRepo) GetByID(_ context.Context, id string) (*model.DistributionSession, error) {
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDistributionRepo) List(_ context.Context) ([]model.DistributionSession, error) {
	var result []model.DistributionSession
	for _, s := range m.sessions {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockDistributionRepo) ListRoster(_ context.Context, sessionID string) ([]model.DistributionStudent, error) {
	var result []model.DistributionStudent
	for _, e := range m.roster {
		if e.SessionID == sessionID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *mockDistributionRepo) UpdateAssignment(_ context.Context, sessionID, studentID string, bookID, bookNumber, notes *string) error {
	entry, ok := m.roster[rosterKey(sessionID, studentID)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	entry.AssignedBookID = bookID
	entry.AssignedBookNumber = bookNumber
	entry.Notes = notes
	return nil
}

func (m *mockDistributionRepo) BatchUpdateAssignments(ctx context.Context, sessionID string, updates []repository.AssignmentUpdate) ([]string, error) {
	var missing []string
	for _, u := range updates {
		if err := m.UpdateAssignment(ctx, sessionID, u.StudentID, u.BookID, u.BookNumber, u.Notes); err != nil {
			missing = append(missing, u.StudentID)
		}
	}
	return missing, nil
}

func (m *mockDistributionRepo) SetStatus(_ context.Context, sessionID, status string, distributedBy *string, finalizedAt *time.Time) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	if distributedBy != nil {
		s.DistributedBy = distributedBy
	}
	if finalizedAt != nil {
		s.FinalizedAt = finalizedAt
	}
	return nil
}

func (m *mockDistributionRepo) Delete(_ context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	for key, e := range m.roster {
		if e.SessionID == sessionID {
			delete(m.roster, key)
		}
	}
	kept := m.logs[:0]
	for _, l := range m.logs {
		if l.SessionID != sessionID {
			kept = append(kept, l)
		}
	}
	m.logs = kept
	return nil
}

func (m *mockDistributionRepo) AppendImportLog(_ context.Context, log *model.DistributionImportLog) error {
	if log.LogID == "" {
		m.seq++
		log.LogID = fmt.Sprintf("log-%03d", m.seq)
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockDistributionRepo) ListImportLogs(_ context.Context, sessionID string) ([]model.DistributionImportLog, error) {
	var result []model.DistributionImportLog
	for _, l := range m.logs {
		if l.SessionID == sessionID {
			result = append(result, *l)
		}
	}
	return result, nil
}
