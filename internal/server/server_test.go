package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"uniTrack/internal/attendance"
	"uniTrack/internal/config"
	"uniTrack/internal/discovery"
	"uniTrack/internal/logger"
	"uniTrack/internal/portal"
	"uniTrack/internal/store"
	"uniTrack/internal/tracker"
)

type fakeService struct {
	profile    config.Profile
	report     tracker.Report
	statusErr  error
	refreshErr error
	creds      portal.Credentials
	discover   bool
	refreshed  int
}

func (f *fakeService) Profile() (config.Profile, error) { return f.profile, nil }

func (f *fakeService) Status() (tracker.Report, error) { return f.report, f.statusErr }

func (f *fakeService) Refresh(_ context.Context, creds portal.Credentials, autoDiscover bool) (tracker.Report, error) {
	f.refreshed++
	f.creds = creds
	f.discover = autoDiscover
	return f.report, f.refreshErr
}

type fakeFetcher struct {
	cfg    portal.Config
	result *portal.Result
	err    error
}

func (f *fakeFetcher) Fetch(_ context.Context, cfg portal.Config) (*portal.Result, error) {
	f.cfg = cfg
	return f.result, f.err
}

func newTestServer(svc *fakeService, f *fakeFetcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Cfg{Auth: config.Auth{Username: "env-user", Password: "env-pass"}}
	return New(cfg, logger.Nop(), svc, f).Router()
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleReport() tracker.Report {
	snap := store.Snapshot{
		Institution: "CMRIT",
		Subjects: []attendance.SubjectRecord{
			attendance.NewSubjectRecord("Maths", "MA101", 70, 20, "", "Sem 3"),
		},
	}
	return tracker.BuildReport(snap, attendance.DefaultThresholds())
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(&fakeService{}, &fakeFetcher{}), http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestConfig_HidesCredentials(t *testing.T) {
	profile := config.DefaultProfile()
	profile.Credentials = config.ProfileCredentials{Username: "asha", Password: "s3cret"}
	w := do(t, newTestServer(&fakeService{profile: profile}, &fakeFetcher{}), http.MethodGet, "/api/config", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cret")
	assert.NotContains(t, w.Body.String(), "credentials")
	assert.Contains(t, w.Body.String(), `"configured":false`)
}

func TestAttendance_FromCache(t *testing.T) {
	svc := &fakeService{report: sampleReport()}
	w := do(t, newTestServer(svc, &fakeFetcher{}), http.MethodGet, "/api/attendance", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got tracker.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Sem 3", got.Semester)
	require.Len(t, got.Subjects, 1)
	assert.Equal(t, attendance.StatusCritical, got.Subjects[0].Status)
	assert.Equal(t, 0, svc.refreshed)
}

func TestAttendance_NoCache(t *testing.T) {
	svc := &fakeService{statusErr: store.ErrNoCache}
	w := do(t, newTestServer(svc, &fakeFetcher{}), http.MethodGet, "/api/attendance", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendance_RefreshUsesEnvCredentials(t *testing.T) {
	svc := &fakeService{profile: config.DefaultProfile(), report: sampleReport()}
	w := do(t, newTestServer(svc, &fakeFetcher{}), http.MethodGet, "/api/attendance?refresh=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.refreshed)
	assert.Equal(t, portal.Credentials{Username: "env-user", Password: "env-pass"}, svc.creds)
	assert.True(t, svc.discover, "без селекторов в профиле нужен автопоиск")
}

func TestRefresh_BodyOverridesAndErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"bad credentials", &portal.FetchError{Kind: portal.KindAuthenticationFailed, Reason: portal.ReasonInvalidCredentials, Message: "Invalid credentials"}, http.StatusUnauthorized},
		{"no data", &portal.FetchError{Kind: portal.KindNoDataFound, Message: "No attendance data found."}, http.StatusNotFound},
		{"incomplete", &portal.FetchError{Kind: portal.KindConfigurationIncomplete, Message: "missing login_button"}, http.StatusBadRequest},
		{"internal", &portal.FetchError{Kind: portal.KindInternal, Message: "browser launch failed"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{profile: config.DefaultProfile(), report: sampleReport(), refreshErr: tt.err}
			w := do(t, newTestServer(svc, &fakeFetcher{}), http.MethodPost, "/api/refresh",
				credentialsRequest{Username: "body-user", Password: "body-pass"})

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "body-user", svc.creds.Username)
			assert.NotContains(t, w.Body.String(), "body-pass")
		})
	}
}

func TestFetch_Validation(t *testing.T) {
	r := newTestServer(&fakeService{}, &fakeFetcher{})

	w := do(t, r, http.MethodPost, "/api/fetch", fetchRequest{ERPURL: "erp.example.edu", Username: "asha"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required fields")

	req := httptest.NewRequest(http.MethodPost, "/api/fetch", bytes.NewBufferString("not json"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetch_Success(t *testing.T) {
	f := &fakeFetcher{result: &portal.Result{
		Subjects: []attendance.SubjectRecord{attendance.NewSubjectRecord("Maths", "MA101", 3, 1, "", "")},
		Student:  discovery.StudentInfo{Name: "Asha"},
	}}
	w := do(t, newTestServer(&fakeService{}, f), http.MethodPost, "/api/fetch",
		fetchRequest{ERPURL: "erp.example.edu//", Username: " asha ", Password: "pw"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://erp.example.edu", f.cfg.BaseURL)
	assert.Equal(t, "https://erp.example.edu/login.htm", f.cfg.LoginURL)
	assert.Equal(t, "asha", f.cfg.Credentials.Username)
	assert.True(t, f.cfg.AutoDiscover)

	var body struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Count)
}

func TestFetch_AuthFailure(t *testing.T) {
	f := &fakeFetcher{err: &portal.FetchError{Kind: portal.KindAuthenticationFailed, Reason: portal.ReasonGenericAuthFailure, Message: "Authentication failed"}}
	w := do(t, newTestServer(&fakeService{}, f), http.MethodPost, "/api/fetch",
		fetchRequest{ERPURL: "https://erp.example.edu", Username: "asha", Password: "pw"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Authentication failed"}`, w.Body.String())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://erp.example.edu", NormalizeBaseURL("erp.example.edu/"))
	assert.Equal(t, "http://localhost:8080", NormalizeBaseURL(" http://localhost:8080 "))
	assert.Equal(t, "", NormalizeBaseURL("  "))
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Cfg{App: config.App{Host: "127.0.0.1", Port: "0"}}
	srv := New(cfg, logger.Nop(), &fakeService{}, &fakeFetcher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("сервер не остановился")
	}
}

func TestFetch_ErrorLogRedactsRequestPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	f := &fakeFetcher{err: fmt.Errorf("login form rejected alice/s3cret-pw")}
	cfg := &config.Cfg{Auth: config.Auth{Username: "env-user", Password: "env-pass"}}
	r := New(cfg, &logger.Zap{Logger: zap.New(core)}, &fakeService{}, f).Router()

	w := do(t, r, http.MethodPost, "/api/fetch", map[string]string{
		"erp_url": "https://erp.example.edu", "username": "alice", "password": "s3cret-pw",
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cret-pw")

	failed := logs.FilterMessage("Выгрузка не удалась").All()
	require.Len(t, failed, 1)
	logged := failed[0].ContextMap()["error"].(string)
	assert.NotContains(t, logged, "s3cret-pw")
	assert.NotContains(t, logged, "alice")
	assert.Contains(t, logged, "login form rejected")
}
