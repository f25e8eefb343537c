package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/igen-labs/cxo-survey/ai"
	"github.com/igen-labs/cxo-survey/auth"
	"github.com/igen-labs/cxo-survey/config"
	"github.com/igen-labs/cxo-survey/db"
	"github.com/igen-labs/cxo-survey/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache database keeps the schema alive across pooled
	// connections while staying isolated per test.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared",
		atomic.AddInt64(&dbCounter, 1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	return conn
}

// fakeMailer records outbound mail instead of sending it.
type fakeMailer struct {
	otps    []fakeOTP
	invites []string
	notices []string
	fail    bool
}

type fakeOTP struct {
	To   string
	Code string
	Type string
}

func (m *fakeMailer) SignupLink(token string) string {
	return "http://localhost:3000/signup?token=" + token
}

func (m *fakeMailer) SendOTP(to, code, otpType string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.otps = append(m.otps, fakeOTP{To: to, Code: code, Type: otpType})
	return nil
}

func (m *fakeMailer) SendCEOInvite(to, token, orgName string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.invites = append(m.invites, to)
	return nil
}

func (m *fakeMailer) SendUserInvite(to, token, orgName, departmentName string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.invites = append(m.invites, to)
	return nil
}

func (m *fakeMailer) SendSurveyNotification(to, surveyTitle string, dueDate *time.Time) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.notices = append(m.notices, to)
	return nil
}

func (m *fakeMailer) lastOTP() fakeOTP {
	return m.otps[len(m.otps)-1]
}

func newTestHandler(t *testing.T) (*Handler, *fakeMailer) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		FrontendURL: "http://localhost:3000",
	}
	mail := &fakeMailer{}
	return New(setupTestDB(t), mail, ai.New(cfg.AI), cfg), mail
}

// doJSON runs a handler directly with an optional authenticated employee
// and mux path vars, returning the recorder.
func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}, emp *models.Employee, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if emp != nil {
		req = req.WithContext(auth.WithEmployee(req.Context(), emp))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func seedAdmin(t *testing.T, conn *gorm.DB) *models.Employee {
	t.Helper()
	admin := &models.Employee{
		Name:         "Platform Admin",
		Email:        "admin@example.com",
		Role:         models.RoleAdmin,
		InviteStatus: models.InviteAccepted,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(admin).Error)
	return admin
}

func seedOrg(t *testing.T, conn *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		Name:     name,
		CEOEmail: "ceo@" + name + ".example.com",
		Status:   models.OrgStatusActive,
	}
	require.NoError(t, conn.Create(org).Error)
	return org
}

func seedDepartment(t *testing.T, conn *gorm.DB, orgID uint, name string) *models.Department {
	t.Helper()
	dept := &models.Department{Name: name, OrgID: orgID}
	require.NoError(t, conn.Create(dept).Error)
	return dept
}

func seedEmployee(t *testing.T, conn *gorm.DB, org *models.Organization, dept *models.Department, role models.Role, email string) *models.Employee {
	t.Helper()
	emp := &models.Employee{
		Name:         "Employee " + email,
		Email:        email,
		Role:         role,
		OrgID:        &org.ID,
		InviteStatus: models.InviteAccepted,
		IsActive:     true,
	}
	if dept != nil {
		emp.DepartmentID = &dept.ID
	}
	require.NoError(t, conn.Create(emp).Error)
	return emp
}

func seedSurvey(t *testing.T, conn *gorm.DB, orgID uint, createdBy uint) *models.Survey {
	t.Helper()
	survey := &models.Survey{
		Title:     "Leadership Assessment",
		OrgID:     &orgID,
		CreatedBy: createdBy,
		Questions: models.QuestionList{
			{
				ID:             uuid.NewString(),
				QuestionNumber: "1",
				Text:           "How does the team respond to new ideas?",
				PresentOptions: []models.Option{
					{Text: "Embraces them", CreativityMarks: 5, MoralityMarks: 3},
					{Text: "Resists them", CreativityMarks: 1, MoralityMarks: 2},
				},
				FutureOptions: []models.Option{
					{Text: "Will embrace them", CreativityMarks: 4, MoralityMarks: 4},
					{Text: "Will resist them", CreativityMarks: 0, MoralityMarks: 1},
				},
				Required: true,
			},
			{
				ID:             uuid.NewString(),
				QuestionNumber: "2",
				Text:           "Are decisions made fairly?",
				PresentOptions: []models.Option{
					{Text: "Always", CreativityMarks: 2, MoralityMarks: 5},
					{Text: "Rarely", CreativityMarks: 1, MoralityMarks: 0},
				},
				FutureOptions: []models.Option{
					{Text: "Will be", CreativityMarks: 2, MoralityMarks: 5},
					{Text: "Won't be", CreativityMarks: 1, MoralityMarks: 0},
				},
				Required: false,
			},
		},
		Status: models.SurveyActive,
	}
	require.NoError(t, conn.Create(survey).Error)
	return survey
}

func seedAssignment(t *testing.T, conn *gorm.DB, survey *models.Survey, emp *models.Employee) *models.SurveyAssignment {
	t.Helper()
	assignment := &models.SurveyAssignment{
		SurveyID:     survey.ID,
		OrgID:        *emp.OrgID,
		DepartmentID: emp.DepartmentID,
		EmployeeID:   emp.ID,
		Status:       models.AssignmentPending,
		AssignedAt:   time.Now(),
	}
	require.NoError(t, conn.Create(assignment).Error)
	return assignment
}

func intPtr(v int) *int { return &v }
