package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/jobs"
)

type memInstructors struct {
	mu        sync.Mutex
	byID      map[string]*models.Instructor
	order     []string
	seq       int
	findErr   error
	existsErr error
	addErr    error
	createErr error
}

func newMemInstructors(items ...models.Instructor) *memInstructors {
	m := &memInstructors{byID: map[string]*models.Instructor{}}
	for i := range items {
		item := items[i]
		if item.ID == "" {
			m.seq++
			item.ID = fmt.Sprintf("ins-%d", m.seq)
		}
		m.byID[item.ID] = &item
		m.order = append(m.order, item.ID)
	}
	return m
}

func (m *memInstructors) find(match func(*models.Instructor) bool) (*models.Instructor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, id := range m.order {
		if ins := m.byID[id]; match(ins) {
			clone := *ins
			clone.Students = append([]string{}, ins.Students...)
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memInstructors) FindByCode(_ context.Context, code string) (*models.Instructor, error) {
	return m.find(func(i *models.Instructor) bool { return i.InstructorCode == code })
}

func (m *memInstructors) FindByEmail(_ context.Context, email string) (*models.Instructor, error) {
	return m.find(func(i *models.Instructor) bool { return i.Email == email })
}

func (m *memInstructors) FindByUID(_ context.Context, uid string) (*models.Instructor, error) {
	return m.find(func(i *models.Instructor) bool { return i.UID == uid })
}

func (m *memInstructors) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, err := m.FindByCode(ctx, code)
	if err == repository.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *memInstructors) Create(_ context.Context, instructor *models.Instructor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if existing.InstructorCode == instructor.InstructorCode {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	instructor.ID = fmt.Sprintf("ins-%d", m.seq)
	clone := *instructor
	m.byID[clone.ID] = &clone
	m.order = append(m.order, clone.ID)
	return nil
}

func (m *memInstructors) AddStudent(_ context.Context, instructorID, studentUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	ins, ok := m.byID[instructorID]
	if !ok {
		return repository.ErrNotFound
	}
	if !ins.HasStudent(studentUID) {
		ins.Students = append(ins.Students, studentUID)
	}
	return nil
}

func (m *memInstructors) UpdateContact(_ context.Context, id, contactNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ins, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	ins.ContactNumber = contactNumber
	return nil
}

func (m *memInstructors) get(id string) *models.Instructor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type memStudents struct {
	mu           sync.Mutex
	byID         map[string]*models.Student
	order        []string
	seq          int
	findErr      error
	listErr      error
	setIDErr     error
	listCalls    int
	updateCalled bool
}

func newMemStudents(items ...models.Student) *memStudents {
	m := &memStudents{byID: map[string]*models.Student{}}
	for i := range items {
		item := items[i]
		m.byID[item.ID] = &item
		m.order = append(m.order, item.ID)
	}
	return m
}

func (m *memStudents) find(match func(*models.Student) bool) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, id := range m.order {
		if st := m.byID[id]; match(st) {
			clone := *st
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	return m.find(func(s *models.Student) bool { return s.ID == id })
}

func (m *memStudents) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	return m.find(func(s *models.Student) bool { return s.Email == email })
}

func (m *memStudents) FindByUID(_ context.Context, uid string) (*models.Student, error) {
	return m.find(func(s *models.Student) bool { return s.UID == uid })
}

func (m *memStudents) Create(_ context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	student.ID = fmt.Sprintf("doc%05dxyz", m.seq)
	clone := *student
	m.byID[clone.ID] = &clone
	m.order = append(m.order, clone.ID)
	return nil
}

func (m *memStudents) SetStudentID(_ context.Context, id, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setIDErr != nil {
		return m.setIDErr
	}
	st, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.StudentID = studentID
	return nil
}

func (m *memStudents) ListByInstructorCode(_ context.Context, code string) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Student
	for _, id := range m.order {
		if st := m.byID[id]; st.InstructorReference == code {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *memStudents) ListAll(_ context.Context) ([]models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Student, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.byID[id])
	}
	return out, nil
}

func (m *memStudents) UpdateInfo(_ context.Context, id string, update models.StudentInfoUpdate) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalled = true
	st, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Balance != nil {
		st.Balance = *update.Balance
	}
	if update.Remarks != nil {
		st.Remarks = *update.Remarks
	}
	clone := *st
	return &clone, nil
}

func (m *memStudents) UpdateContact(_ context.Context, id, contactNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.ContactNumber = contactNumber
	return nil
}

func (m *memStudents) get(id string) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type memAnnouncements struct {
	mu      sync.Mutex
	byID    map[string]*models.Announcement
	order   []string
	listErr error
}

func newMemAnnouncements() *memAnnouncements {
	return &memAnnouncements{byID: map[string]*models.Announcement{}}
}

func (m *memAnnouncements) Create(_ context.Context, a *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = fmt.Sprintf("ann-%d", len(m.order)+1)
	a.Seq = int64(len(m.order) + 1)
	clone := *a
	m.byID[a.ID] = &clone
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memAnnouncements) FindByID(_ context.Context, id string) (*models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memAnnouncements) ListByInstructorCode(_ context.Context, code string) ([]models.Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Announcement
	for _, id := range m.order {
		if a := m.byID[id]; a.InstructorCode == code {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAnnouncements) addMember(id, uid string, set func(*models.Announcement) *[]string, counter func(*models.Announcement) *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	members := set(a)
	for _, existing := range *members {
		if existing == uid {
			*counter(a) = len(*members)
			return nil
		}
	}
	*members = append(*members, uid)
	*counter(a) = len(*members)
	return nil
}

func (m *memAnnouncements) AddViewer(_ context.Context, id, uid string) error {
	return m.addMember(id, uid,
		func(a *models.Announcement) *[]string { return &a.ViewedBy },
		func(a *models.Announcement) *int { return &a.TotalViews })
}

func (m *memAnnouncements) AddAcknowledger(_ context.Context, id, uid string) error {
	return m.addMember(id, uid,
		func(a *models.Announcement) *[]string { return &a.AcknowledgedBy },
		func(a *models.Announcement) *int { return &a.TotalAcknowledgments })
}

type memSessions struct {
	mu    sync.Mutex
	items map[string]models.Session
}

func newMemSessions() *memSessions {
	return &memSessions{items: map[string]models.Session{}}
}

func (m *memSessions) Save(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = *s
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]string
	passwords map[string]string
	seq       int
	signInErr error
	signedOut []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{}, passwords: map[string]string{}}
}

func (p *fakeProvider) register(email, password, uid string) {
	p.accounts[email] = uid
	p.passwords[email] = password
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, password string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	uid := fmt.Sprintf("uid-%d", p.seq)
	p.accounts[email] = uid
	p.passwords[email] = password
	return uid, nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signInErr != nil {
		return "", p.signInErr
	}
	uid, ok := p.accounts[email]
	if !ok || p.passwords[email] != password {
		return "", fmt.Errorf("invalid credentials")
	}
	return uid, nil
}

func (p *fakeProvider) SignOut(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedOut = append(p.signedOut, uid)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, event string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingScheduler struct {
	ids []string
}

func (r *recordingScheduler) Schedule(studentID string) {
	r.ids = append(r.ids, studentID)
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequenceGenerator(codes ...string) CodeGenerator {
	var i int
	return func() string {
		code := codes[i%len(codes)]
		i++
		return code
	}
}
