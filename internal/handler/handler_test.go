package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/middleware"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/service"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newContext(method, target string, body interface{}, session *models.Session) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if session != nil {
		c.Set(middleware.ContextSessionKey, session)
	}
	return c, rec
}

func studentSession() *models.Session {
	return models.NewSession("sess-s", &models.Student{ID: "stu1", UID: "uid-ana", LastName: "Cruz", InstructorReference: "1234"}, time.Now(), time.Hour)
}

func instructorSession() *models.Session {
	return models.NewSession("sess-i", &models.Instructor{ID: "ins1", UID: "uid-ben", Name: "Ben Reyes", InstructorCode: "1234"}, time.Now(), time.Hour)
}

type fakeAuth struct {
	loginReq  models.LoginRequest
	loginErr  error
	loggedOut *models.Session
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{Token: "tok", Role: req.Role}, nil
}

func (f *fakeAuth) Logout(_ context.Context, session *models.Session) error {
	f.loggedOut = session
	return nil
}

type fakeRegistration struct {
	err error
}

func (f *fakeRegistration) RegisterStudent(_ context.Context, form dto.StudentRegistrationRequest) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "stu9", UID: "uid-9", Email: form.Email, InstructorReference: form.InstructorCode}, nil
}

func (f *fakeRegistration) RegisterInstructor(_ context.Context, form dto.InstructorRegistrationRequest) (*models.Instructor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Instructor{ID: "ins9", UID: "uid-9", InstructorCode: form.InstructorCode}, nil
}

type fakeIssuer struct {
	err error
}

func (f fakeIssuer) Issue(_ context.Context, record models.UserRecord) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{Token: "tok-" + record.AuthUID(), Role: record.Role()}, nil
}

func TestRegisterStudentIssuesSession(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, &fakeRegistration{}, fakeIssuer{}, nil)
	c, rec := newContext(http.MethodPost, "/auth/register/student", map[string]interface{}{"email": "ana@example.com", "instructor_code": "1234"}, nil)

	h.RegisterStudent(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.RegistrationResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	assert.Equal(t, "stu9", resp.RecordID)
	require.NotNil(t, resp.Session)
	assert.Equal(t, "tok-uid-9", resp.Session.Token)
}

func TestRegisterInstructorWithoutSession(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, &fakeRegistration{}, fakeIssuer{err: errors.New("redis down")}, nil)
	c, rec := newContext(http.MethodPost, "/auth/register/instructor", map[string]interface{}{"instructor_code": "4321"}, nil)

	h.RegisterInstructor(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.RegistrationResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &resp))
	assert.Equal(t, "ins9", resp.RecordID)
	assert.Nil(t, resp.Session)
}

func TestRegisterMapsServiceErrors(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{}, &fakeRegistration{err: appErrors.ErrCodeAlreadyInUse}, fakeIssuer{}, nil)
	c, rec := newContext(http.MethodPost, "/auth/register/instructor", map[string]interface{}{"instructor_code": "1234"}, nil)

	h.RegisterInstructor(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

func TestLoginPassesRequestMetadata(t *testing.T) {
	auth := &fakeAuth{}
	h := NewAuthHandler(auth, &fakeRegistration{}, fakeIssuer{}, nil)
	c, rec := newContext(http.MethodPost, "/auth/login", map[string]string{"email": "ana@example.com", "password": "secret1", "role": "student"}, nil)
	c.Request.Header.Set("User-Agent", "portal-test")

	h.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleStudent, auth.loginReq.Role)
	assert.Equal(t, "portal-test", auth.loginReq.UserAgent)
}

func TestLoginRoleMismatch(t *testing.T) {
	h := NewAuthHandler(&fakeAuth{loginErr: appErrors.Clone(appErrors.ErrRoleMismatch, "This email is registered as a instructor, but you selected student")}, &fakeRegistration{}, fakeIssuer{}, nil)
	c, rec := newContext(http.MethodPost, "/auth/login", map[string]string{"email": "ben@example.com", "password": "secret1", "role": "student"}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "registered as a instructor")
}

func TestLogout(t *testing.T) {
	auth := &fakeAuth{}
	h := NewAuthHandler(auth, &fakeRegistration{}, fakeIssuer{}, nil)

	c, rec := newContext(http.MethodPost, "/auth/logout", nil, nil)
	h.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	session := studentSession()
	c, _ = newContext(http.MethodPost, "/auth/logout", nil, session)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Same(t, session, auth.loggedOut)
}

type fakeCodes struct {
	code string
	err  error
}

func (f fakeCodes) Allocate(context.Context) (string, error) {
	return f.code, f.err
}

func (f fakeCodes) ValidateInstructorCode(_ context.Context, code string) service.CodeValidation {
	if code == "1234" {
		return service.CodeValidation{Valid: true, Instructor: &models.Instructor{Name: "Ben Reyes"}}
	}
	return service.CodeValidation{Message: "Instructor code must be exactly 4 digits"}
}

func TestInstructorCodeEndpoints(t *testing.T) {
	h := NewInstructorCodeHandler(fakeCodes{code: "4821"}, fakeCodes{})

	c, rec := newContext(http.MethodGet, "/instructor-codes/new", nil, nil)
	h.New(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":"4821"}`, string(decode(t, rec).Data))

	c, rec = newContext(http.MethodGet, "/instructor-codes/1234", nil, nil)
	c.Params = gin.Params{{Key: "code", Value: "1234"}}
	h.Validate(c)
	var check dto.InstructorCodeCheck
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &check))
	assert.True(t, check.Valid)
	assert.Equal(t, "Ben Reyes", check.InstructorName)

	c, rec = newContext(http.MethodGet, "/instructor-codes/12", nil, nil)
	c.Params = gin.Params{{Key: "code", Value: "12"}}
	h.Validate(c)
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &check))
	assert.False(t, check.Valid)
	assert.Equal(t, "Instructor code must be exactly 4 digits", check.Message)
}

func TestInstructorCodeExhausted(t *testing.T) {
	h := NewInstructorCodeHandler(fakeCodes{err: appErrors.ErrAllocationExhausted}, fakeCodes{})
	c, rec := newContext(http.MethodGet, "/instructor-codes/new", nil, nil)

	h.New(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeAnnouncements struct {
	created  dto.CreateAnnouncementRequest
	code     string
	viewed   []string
	markErr  error
	student  []models.Announcement
	instruct []models.Announcement
}

func (f *fakeAnnouncements) Create(_ context.Context, code string, req dto.CreateAnnouncementRequest) (*models.Announcement, error) {
	f.code, f.created = code, req
	return &models.Announcement{ID: "ann-1", Title: req.Title, InstructorCode: code}, nil
}

func (f *fakeAnnouncements) ListForInstructor(context.Context, string) []models.Announcement {
	return f.instruct
}

func (f *fakeAnnouncements) ListForStudent(context.Context, string) []models.Announcement {
	return f.student
}

func (f *fakeAnnouncements) MarkViewed(_ context.Context, id, uid string) error {
	f.viewed = append(f.viewed, id+":"+uid)
	return f.markErr
}

func (f *fakeAnnouncements) MarkAcknowledged(_ context.Context, id, uid string) error {
	return f.markErr
}

func TestAnnouncementListForStudentIncludesReadState(t *testing.T) {
	svc := &fakeAnnouncements{student: []models.Announcement{{ID: "a1", ViewedBy: []string{"uid-ana"}}, {ID: "a2"}}}
	h := NewAnnouncementHandler(svc)
	c, rec := newContext(http.MethodGet, "/announcements", nil, studentSession())

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	var views []dto.AnnouncementView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 2)
	assert.True(t, views[0].Viewed)
	assert.False(t, views[1].Viewed)
	assert.EqualValues(t, 2, env.Meta["count"])
}

func TestAnnouncementCreateUsesSessionCode(t *testing.T) {
	svc := &fakeAnnouncements{}
	h := NewAnnouncementHandler(svc)
	c, rec := newContext(http.MethodPost, "/announcements", map[string]string{"title": "Quiz", "content": "Friday", "priority": "normal"}, instructorSession())

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1234", svc.code)
	assert.Equal(t, "Quiz", svc.created.Title)
}

func TestAnnouncementViewAndForbidden(t *testing.T) {
	svc := &fakeAnnouncements{}
	h := NewAnnouncementHandler(svc)

	c, _ := newContext(http.MethodPost, "/announcements/a1/view", nil, studentSession())
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	h.View(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, []string{"a1:uid-ana"}, svc.viewed)

	svc.markErr = appErrors.Clone(appErrors.ErrForbidden, "announcement belongs to another instructor")
	c, rec := newContext(http.MethodPost, "/announcements/a1/acknowledge", nil, studentSession())
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	h.Acknowledge(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type fakeRoster struct {
	update     dto.UpdateStudentInfoRequest
	updateCode string
}

func (f *fakeRoster) Roster(context.Context, string) ([]dto.RosterStudent, dto.RosterSummary) {
	return []dto.RosterStudent{{Student: models.Student{ID: "s1", LastName: "Cruz"}, PaymentStatus: models.PaymentPaid}}, dto.RosterSummary{Total: 1, Paid: 1}
}

func (f *fakeRoster) UpdateInfo(_ context.Context, code, id string, req dto.UpdateStudentInfoRequest) (*models.Student, error) {
	f.updateCode, f.update = code, req
	return &models.Student{ID: id, Balance: *req.Balance}, nil
}

type fakeExporter struct{}

func (fakeExporter) ExportRoster(_ context.Context, code string, format service.ExportFormat) (*service.ExportResult, error) {
	return &service.ExportResult{Filename: "roster_" + code + "." + string(format), ContentType: "text/csv", Data: []byte("Student ID\n")}, nil
}

func TestStudentListIncludesSummary(t *testing.T) {
	h := NewStudentHandler(&fakeRoster{}, fakeExporter{})
	c, rec := newContext(http.MethodGet, "/students", nil, instructorSession())

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	summary, ok := env.Meta["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, summary["total"])
}

func TestStudentUpdateReturnsPaymentStatus(t *testing.T) {
	roster := &fakeRoster{}
	h := NewStudentHandler(roster, fakeExporter{})
	c, rec := newContext(http.MethodPatch, "/students/s1", map[string]interface{}{"balance": 250}, instructorSession())
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1234", roster.updateCode)
	var row dto.RosterStudent
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &row))
	assert.Equal(t, models.PaymentPending, row.PaymentStatus)
}

func TestStudentExport(t *testing.T) {
	h := NewStudentHandler(&fakeRoster{}, fakeExporter{})

	c, rec := newContext(http.MethodGet, "/students/export?format=csv", nil, instructorSession())
	h.Export(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "roster_1234.csv"))

	c, rec = newContext(http.MethodGet, "/students/export?format=docx", nil, instructorSession())
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeProfile struct{}

func (fakeProfile) Current(_ context.Context, session *models.Session) (models.UserRecord, error) {
	return session.Record(), nil
}

func (fakeProfile) UpdateContact(_ context.Context, session *models.Session, req dto.UpdateContactRequest) (models.UserRecord, error) {
	if req.ContactNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid contact number")
	}
	return session.Record(), nil
}

func TestUserEndpoints(t *testing.T) {
	h := NewUserHandler(fakeProfile{})

	c, rec := newContext(http.MethodGet, "/me", nil, studentSession())
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "student", decode(t, rec).Meta["role"])

	c, rec = newContext(http.MethodPatch, "/me", map[string]string{"contact_number": ""}, instructorSession())
	h.UpdateMe(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/me", nil, nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type fakeDashboard struct{}

func (fakeDashboard) Build(_ context.Context, session *models.Session) (*dto.DashboardResponse, error) {
	return &dto.DashboardResponse{Role: session.Role, User: session.Record()}, nil
}

func TestDashboardHandler(t *testing.T) {
	h := NewDashboardHandler(fakeDashboard{})
	c, rec := newContext(http.MethodGet, "/dashboard", nil, instructorSession())

	h.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.Equal(t, "instructor", body["role"])
}

func TestReadyReportsFailingCheck(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	c, rec := newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	c, rec = newContext(http.MethodGet, "/health", nil, nil)
	h.Health(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/metrics/summary", nil, nil)
	h.Summary(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}
