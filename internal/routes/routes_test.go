package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"care-portal-server/internal/config"
	"care-portal-server/internal/database"
	"care-portal-server/internal/goals"
	"care-portal-server/internal/jobs"
	"care-portal-server/internal/models"
	"care-portal-server/internal/progress"
	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	router *gin.Engine
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}

	s := &testServer{
		t:  t,
		db: db,
		cfg: &config.Config{
			Environment:               "test",
			JWTSecret:                 "test-access-secret",
			JWTRefreshSecret:          "test-refresh-secret",
			JWTExpirationMinutes:      15,
			JWTRefreshExpirationHours: 1,
			AuthRateLimitPerMinute:    100,
		},
		router: gin.New(),
		now:    time.Date(2026, 5, 20, 10, 0, 0, 0, time.Local),
	}

	svc := goals.NewService(db)
	svc.Now = func() time.Time { return s.now }
	job := jobs.NewGoalNotificationJob(db)
	job.Now = func() time.Time { return s.now }

	SetupRoutes(s.router, db, s.cfg, Deps{Goals: svc, GoalNotifications: job})
	return s
}

func (s *testServer) user(email string, role models.Role) *models.User {
	s.t.Helper()
	u := &models.User{Email: email, FirstName: "Test", Role: role, Status: models.UserStatusActive}
	if err := u.SetPassword("Passw0rdX"); err != nil {
		s.t.Fatalf("SetPassword() error = %v", err)
	}
	if err := s.db.Create(u).Error; err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	return u
}

func (s *testServer) assign(doctor, patient *models.User) {
	s.t.Helper()
	a := models.PatientAssignment{DoctorID: doctor.ID, PatientID: patient.ID, Status: models.AssignmentActive}
	if err := s.db.Create(&a).Error; err != nil {
		s.t.Fatalf("create assignment: %v", err)
	}
}

func (s *testServer) token(u *models.User) string {
	s.t.Helper()
	access, _, err := utils.GenerateTokens(u, s.cfg)
	if err != nil {
		s.t.Fatalf("GenerateTokens() error = %v", err)
	}
	return access
}

// do sends a request as u (anonymous when nil) and decodes the envelope.
func (s *testServer) do(method, path string, u *models.User, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(u))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode response %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != `{"status":"UP"}` {
		t.Errorf("GET /health body = %s", got)
	}
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)
	signup := map[string]any{
		"firstName": "Ada",
		"email":     "Ada@Example.com",
		"password":  "Str0ngPass",
	}

	code, env := s.do(http.MethodPost, "/api/v1/auth/signup", nil, signup)
	if code != http.StatusCreated {
		t.Fatalf("signup status = %d (%s), want 201", code, env.Error)
	}
	var created models.UserSanitized
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if created.Email != "ada@example.com" || created.Role != models.RolePatient {
		t.Errorf("signup user = %+v, want patient ada@example.com", created)
	}

	if code, _ := s.do(http.MethodPost, "/api/v1/auth/signup", nil, signup); code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", code)
	}

	weak := map[string]any{"firstName": "Bo", "email": "bo@example.com", "password": "password"}
	if code, _ := s.do(http.MethodPost, "/api/v1/auth/signup", nil, weak); code != http.StatusBadRequest {
		t.Errorf("weak password signup status = %d, want 400", code)
	}

	code, env = s.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]any{
		"email": "ada@example.com", "password": "Str0ngPass",
	})
	if code != http.StatusOK {
		t.Fatalf("login status = %d (%s), want 200", code, env.Error)
	}
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &login); err != nil || login.AccessToken == "" {
		t.Fatalf("login data = %s, want an access token", env.Data)
	}

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]any{
		"email": "ada@example.com", "password": "Wr0ngPass",
	})
	if code != http.StatusUnauthorized {
		t.Errorf("bad password login status = %d, want 401", code)
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.cfg.AuthRateLimitPerMinute = 2
	s.router = gin.New()
	SetupRoutes(s.router, s.db, s.cfg, Deps{})

	body := map[string]any{"email": "nobody@example.com", "password": "Passw0rdX"}
	var codes []int
	for range 3 {
		code, _ := s.do(http.MethodPost, "/api/v1/auth/login", nil, body)
		codes = append(codes, code)
	}
	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	if diff := cmp.Diff(codes, want); diff != "" {
		t.Errorf("login status codes mismatch (-got +want):\n%s", diff)
	}
}

func TestRoleScoping(t *testing.T) {
	s := newTestServer(t)
	patient := s.user("pat@example.com", models.RolePatient)
	doctor := s.user("doc@example.com", models.RoleDoctor)

	tests := []struct {
		name   string
		method string
		path   string
		as     *models.User
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/patient/dashboard-data", nil, http.StatusUnauthorized},
		{"patient on admin route", http.MethodGet, "/api/v1/admin/users", patient, http.StatusForbidden},
		{"doctor on patient route", http.MethodGet, "/api/v1/patient/dashboard-data", doctor, http.StatusForbidden},
		{"patient on doctor route", http.MethodGet, "/api/v1/doctor/patients", patient, http.StatusForbidden},
		{"doctor lists patients", http.MethodGet, "/api/v1/doctor/patients", doctor, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, env := s.do(tt.method, tt.path, tt.as, nil); code != tt.want {
				t.Errorf("%s %s status = %d (%s), want %d", tt.method, tt.path, code, env.Error, tt.want)
			}
		})
	}
}

func TestDoctorCreatesGoalOnlyForAssignedPatients(t *testing.T) {
	s := newTestServer(t)
	doctor := s.user("doc@example.com", models.RoleDoctor)
	assigned := s.user("pat@example.com", models.RolePatient)
	stranger := s.user("stranger@example.com", models.RolePatient)
	s.assign(doctor, assigned)

	body := map[string]any{"target_type": "steps", "goal_target_value": "10000", "frequency": 30}

	code, env := s.do(http.MethodPost, "/api/v1/patient/"+stranger.ID+"/goals", doctor, body)
	if code != http.StatusForbidden {
		t.Errorf("unassigned patient status = %d (%s), want 403", code, env.Error)
	}

	code, env = s.do(http.MethodPost, "/api/v1/patient/"+assigned.ID+"/goals", doctor, body)
	if code != http.StatusCreated {
		t.Fatalf("assigned patient status = %d (%s), want 201", code, env.Error)
	}
	var g models.Goal
	if err := json.Unmarshal(env.Data, &g); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	if g.PatientID != assigned.ID || g.Frequency != 30 || g.Status != models.GoalActive {
		t.Errorf("goal = %+v, want active 30-day goal for assigned patient", g)
	}
	if want := models.GoalDueDate(s.now, 30); !g.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", g.DueDate, want)
	}

	body["patient_id"] = stranger.ID
	if code, _ := s.do(http.MethodPost, "/api/v1/doctors/goals", doctor, body); code != http.StatusForbidden {
		t.Errorf("POST /doctors/goals for unassigned patient status = %d, want 403", code)
	}
}

func TestTrackGoal(t *testing.T) {
	s := newTestServer(t)
	doctor := s.user("doc@example.com", models.RoleDoctor)
	patient := s.user("pat@example.com", models.RolePatient)
	other := s.user("other@example.com", models.RolePatient)
	s.assign(doctor, patient)

	createGoal := func(frequency int) string {
		t.Helper()
		code, env := s.do(http.MethodPost, "/api/v1/doctors/goals", doctor, map[string]any{
			"patient_id": patient.ID, "target_type": "water", "goal_target_value": "2l", "frequency": frequency,
		})
		if code != http.StatusCreated {
			t.Fatalf("create goal status = %d (%s)", code, env.Error)
		}
		var g models.Goal
		if err := json.Unmarshal(env.Data, &g); err != nil {
			t.Fatalf("decode goal: %v", err)
		}
		return g.ID
	}

	short := createGoal(1)
	long := createGoal(3)
	track := func(goalID string, as *models.User) (int, envelope) {
		return s.do(http.MethodPost, "/api/v1/patient/goals/"+goalID+"/track", as, nil)
	}

	if code, _ := track(short, other); code != http.StatusForbidden {
		t.Errorf("tracking another patient's goal status = %d, want 403", code)
	}

	code, env := track(short, patient)
	if code != http.StatusCreated {
		t.Fatalf("first track status = %d (%s), want 201", code, env.Error)
	}
	var res goals.LogResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode log result: %v", err)
	}
	want := progress.Progress{CompletedDays: 1, CompletionPercent: 100, Status: models.GoalCompleted, TodayCompleted: true}
	if diff := cmp.Diff(res.Progress, want); diff != "" {
		t.Errorf("progress mismatch (-got +want):\n%s", diff)
	}

	if code, _ := track(long, patient); code != http.StatusCreated {
		t.Fatalf("track long goal status = %d, want 201", code)
	}
	if code, _ := track(long, patient); code != http.StatusConflict {
		t.Errorf("second track same day status = %d, want 409", code)
	}

	s.now = s.now.AddDate(0, 0, 1)
	if code, _ := track(short, patient); code != http.StatusBadRequest {
		t.Errorf("track completed goal status = %d, want 400", code)
	}
	if code, _ := track(long, patient); code != http.StatusCreated {
		t.Errorf("track long goal next day status = %d, want 201", code)
	}

	code, _ = s.do(http.MethodPost, "/api/v1/tracking", patient, map[string]any{"goal_id": long})
	if code != http.StatusConflict {
		t.Errorf("POST /tracking with goal_id same day status = %d, want 409", code)
	}
}

func TestPatientDashboardProgress(t *testing.T) {
	s := newTestServer(t)
	doctor := s.user("doc@example.com", models.RoleDoctor)
	patient := s.user("pat@example.com", models.RolePatient)

	created := s.now.AddDate(0, 0, -20)
	g := models.Goal{
		BaseModel:   models.BaseModel{CreatedAt: created, UpdatedAt: created},
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		TargetType:  "steps",
		TargetValue: "10000",
		Frequency:   30,
		DueDate:     models.GoalDueDate(created, 30),
		Status:      models.GoalActive,
	}
	if err := s.db.Create(&g).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}
	for i := 0; i < 18; i++ {
		day := created.AddDate(0, 0, i)
		entry := models.GoalLog{GoalID: g.ID, PatientID: patient.ID, Value: "10000", LoggedAt: day, LoggedOn: models.DayKey(day)}
		if err := s.db.Create(&entry).Error; err != nil {
			t.Fatalf("create goal log: %v", err)
		}
	}

	code, env := s.do(http.MethodGet, "/api/v1/patient/dashboard-data", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("dashboard status = %d (%s), want 200", code, env.Error)
	}

	var d struct {
		GoalProgress []struct {
			GoalID            string            `json:"goal_id"`
			Title             string            `json:"title"`
			Target            string            `json:"target"`
			Frequency         int               `json:"frequency"`
			CompletedDays     int               `json:"completed_days"`
			RemainingDays     int               `json:"remaining_days"`
			CompletionPercent float64           `json:"completion_percent"`
			Status            models.GoalStatus `json:"status"`
			TodayCompleted    bool              `json:"today_completed"`
		} `json:"goal_progress"`
	}
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(d.GoalProgress) != 1 {
		t.Fatalf("got %d goals, want 1", len(d.GoalProgress))
	}
	gp := d.GoalProgress[0]
	if gp.GoalID != g.ID || gp.Title != "steps" || gp.Target != "10000" || gp.Frequency != 30 {
		t.Errorf("goal = %+v, want steps/10000/30", gp)
	}
	if gp.CompletedDays != 18 || gp.RemainingDays != 12 || gp.CompletionPercent != 60 || gp.Status != models.GoalActive || gp.TodayCompleted {
		t.Errorf("progress = %+v, want 18 completed, 12 remaining, 60%%, active, not logged today", gp)
	}
}

func TestRunGoalNotificationsEndpoint(t *testing.T) {
	s := newTestServer(t)
	admin := s.user("admin@example.com", models.RoleAdmin)
	patient := s.user("pat@example.com", models.RolePatient)

	created := s.now.AddDate(0, 0, -27)
	g := models.Goal{
		BaseModel:   models.BaseModel{CreatedAt: created, UpdatedAt: created},
		PatientID:   patient.ID,
		DoctorID:    "doctor-1",
		TargetType:  "steps",
		TargetValue: "10000",
		Frequency:   30,
		DueDate:     models.GoalDueDate(created, 30),
		Status:      models.GoalActive,
	}
	if err := s.db.Create(&g).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}

	const path = "/api/v1/admin/jobs/goal-notifications/run"
	if code, _ := s.do(http.MethodPost, path, patient, nil); code != http.StatusForbidden {
		t.Errorf("patient triggering job status = %d, want 403", code)
	}

	code, env := s.do(http.MethodPost, path, admin, nil)
	if code != http.StatusOK {
		t.Fatalf("run job status = %d (%s), want 200", code, env.Error)
	}
	var summary jobs.Summary
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if diff := cmp.Diff(summary, jobs.Summary{Checked: 1, Notified: 1}); diff != "" {
		t.Errorf("summary mismatch (-got +want):\n%s", diff)
	}

	code, env = s.do(http.MethodGet, "/api/v1/notifications", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("list notifications status = %d, want 200", code)
	}
	var ns []models.Notification
	if err := json.Unmarshal(env.Data, &ns); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(ns) != 1 || ns[0].IsRead {
		t.Fatalf("notifications = %+v, want one unread", ns)
	}

	if code, _ := s.do(http.MethodPatch, "/api/v1/notifications/"+ns[0].ID+"/read", admin, nil); code != http.StatusForbidden {
		t.Errorf("marking someone else's notification status = %d, want 403", code)
	}
	code, env = s.do(http.MethodPatch, "/api/v1/notifications/"+ns[0].ID+"/read", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("mark read status = %d (%s), want 200", code, env.Error)
	}
	var n models.Notification
	if err := json.Unmarshal(env.Data, &n); err != nil || !n.IsRead {
		t.Errorf("marked notification = %s, want read", env.Data)
	}
}

func TestPrescriptionsAndConversations(t *testing.T) {
	s := newTestServer(t)
	doctor := s.user("doc@example.com", models.RoleDoctor)
	patient := s.user("pat@example.com", models.RolePatient)
	stranger := s.user("stranger@example.com", models.RolePatient)
	s.assign(doctor, patient)

	rx := map[string]any{"medicine": "Metformin", "dosage": "500mg", "frequency": "twice daily", "durationDays": 30}
	if code, _ := s.do(http.MethodPost, "/api/v1/patient/"+stranger.ID+"/prescriptions", doctor, rx); code != http.StatusForbidden {
		t.Errorf("prescription for unassigned patient status = %d, want 403", code)
	}
	if code, env := s.do(http.MethodPost, "/api/v1/patient/"+patient.ID+"/prescriptions", doctor, rx); code != http.StatusCreated {
		t.Fatalf("prescription status = %d (%s), want 201", code, env.Error)
	}

	code, env := s.do(http.MethodGet, "/api/v1/patient/prescriptions", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("list prescriptions status = %d, want 200", code)
	}
	var list []models.Prescription
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode prescriptions: %v", err)
	}
	if len(list) != 1 || list[0].Medicine != "Metformin" || list[0].DoctorID != doctor.ID {
		t.Errorf("prescriptions = %+v, want one Metformin from the doctor", list)
	}

	msg := map[string]any{"message": "  Please keep up the walks.  "}
	if code, _ := s.do(http.MethodPost, "/api/v1/patient/"+stranger.ID+"/conversations", doctor, msg); code != http.StatusForbidden {
		t.Errorf("conversation with unassigned patient status = %d, want 403", code)
	}
	if code, env := s.do(http.MethodPost, "/api/v1/patient/"+patient.ID+"/conversations", doctor, msg); code != http.StatusCreated {
		t.Fatalf("conversation status = %d (%s), want 201", code, env.Error)
	}

	code, env = s.do(http.MethodGet, "/api/v1/patient/"+patient.ID+"/conversations", patient, nil)
	if code != http.StatusOK {
		t.Fatalf("get conversation status = %d (%s), want 200", code, env.Error)
	}
	var entries []struct {
		Sender  models.Role `json:"sender"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(entries) != 1 || entries[0].Sender != models.RoleDoctor || entries[0].Message != "Please keep up the walks." {
		t.Errorf("conversation = %+v, want the doctor's trimmed message", entries)
	}

	if code, _ := s.do(http.MethodGet, "/api/v1/patient/"+patient.ID+"/conversations", stranger, nil); code != http.StatusForbidden {
		t.Errorf("stranger reading conversation status = %d, want 403", code)
	}
}
