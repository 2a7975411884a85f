package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"uniTrack/internal/attendance"
	"uniTrack/internal/config"
	"uniTrack/internal/database"
	"uniTrack/internal/discovery"
	"uniTrack/internal/portal"
	"uniTrack/internal/store"
	"uniTrack/internal/tracker"
)

func profilePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestConfigSet(t *testing.T) {
	path := profilePath(t)
	var out bytes.Buffer
	h := NewConfigHandler(path, &out, false)

	require.NoError(t, h.Set("portal.base_url", "https://erp.example.edu/"))
	require.NoError(t, h.Set("thresholds.default", "80"))
	require.NoError(t, h.Set("thresholds.custom.Lab", "60"))
	require.NoError(t, h.Set("thresholds.custom.TYL", "90"))
	require.NoError(t, h.Set("thresholds.custom.Lab", "65"))

	p, err := config.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://erp.example.edu", p.Portal.BaseURL)
	assert.Equal(t, 80.0, p.Thresholds.Default)
	assert.Equal(t, attendance.CustomThresholds{{Keyword: "Lab", Threshold: 65}, {Keyword: "TYL", Threshold: 90}}, p.Thresholds.Custom)
}

func TestConfigSet_Rejects(t *testing.T) {
	h := NewConfigHandler(profilePath(t), &bytes.Buffer{}, false)

	assert.Error(t, h.Set("credentials.password", "secret"))
	assert.Error(t, h.Set("thresholds.default", "120"))
	assert.Error(t, h.Set("thresholds.safe_buffer", "ten"))
	assert.Error(t, h.Set("portal.unknown", "x"))
}

type scriptedAsker []string

func (a *scriptedAsker) Ask(context.Context, string) (string, error) {
	answer := (*a)[0]
	*a = (*a)[1:]
	return answer, nil
}

func TestConfigInit_KeepsCurrentOnEmptyAnswer(t *testing.T) {
	path := profilePath(t)
	var out bytes.Buffer
	h := NewConfigHandler(path, &out, false)

	answers := scriptedAsker{"CMR Institute", "", "erp.example.edu", "", "asha"}
	require.NoError(t, h.Init(context.Background(), &answers))

	p, err := config.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "CMR Institute", p.Institution.Name)
	assert.Equal(t, "", p.Institution.ShortName)
	assert.Equal(t, "erp.example.edu", p.Portal.BaseURL)
	assert.Equal(t, "asha", p.Credentials.Username)

	out.Reset()
	require.NoError(t, h.Show())
	assert.Contains(t, out.String(), "name: CMR Institute")
	assert.NotContains(t, out.String(), "password")
}

type fakeStatus struct {
	report tracker.Report
	err    error
}

func (f fakeStatus) Profile() (config.Profile, error) { return config.DefaultProfile(), nil }

func (f fakeStatus) Status() (tracker.Report, error) { return f.report, f.err }

func TestStatusShow(t *testing.T) {
	report := tracker.BuildReport(store.Snapshot{
		Institution: "CMRIT",
		Subjects: []attendance.SubjectRecord{
			attendance.NewSubjectRecord("Maths", "MA101", 50, 50, "", "Sem 3"),
			attendance.NewSubjectRecord("English", "EN101", 30, 0, "", "Sem 3"),
		},
	}, attendance.DefaultThresholds())

	var out bytes.Buffer
	require.NoError(t, NewStatusHandler(fakeStatus{report: report}, &out, false).Show())

	assert.Contains(t, out.String(), "CMRIT")
	assert.Contains(t, out.String(), "Семестр: Sem 3")
	assert.Contains(t, out.String(), "1. Maths (50.00%) Low! Need to attend 100 consecutive class(es)")
	assert.NotContains(t, out.String(), "2. English")
}

func TestStatusShow_NoCache(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewStatusHandler(fakeStatus{err: store.ErrNoCache}, &out, false).Show())

	assert.Contains(t, out.String(), "unitrack fetch")
}

type fakeRefresher struct {
	err error
}

func (f fakeRefresher) Refresh(context.Context, portal.Credentials, bool) (tracker.Report, error) {
	return tracker.Report{Institution: "CMRIT"}, f.err
}

func TestFetch_PrintsReadableError(t *testing.T) {
	var out bytes.Buffer
	err := NewFetchHandler(fakeRefresher{err: &portal.FetchError{Kind: portal.KindAuthenticationFailed, Message: "Invalid credentials"}}, &out, false).
		Fetch(context.Background(), portal.Credentials{}, false, "")

	require.ErrorIs(t, err, portal.ErrAuthenticationFailed)
	assert.Contains(t, out.String(), "проверьте логин и пароль")
}

type fakeDiscoverer struct {
	login discovery.Selectors
	api   *portal.APIDiscovery
	url   string
	cfg   portal.Config
}

func (f *fakeDiscoverer) DiscoverLoginSelectors(_ context.Context, loginURL string) (discovery.Selectors, error) {
	f.url = loginURL
	return f.login, nil
}

func (f *fakeDiscoverer) DiscoverAttendanceAPI(_ context.Context, cfg portal.Config) (*portal.APIDiscovery, error) {
	f.cfg = cfg
	return f.api, nil
}

func TestDiscoverLogin_SavesSelectors(t *testing.T) {
	path := profilePath(t)
	p := config.DefaultProfile()
	p.Portal.BaseURL = "https://erp.example.edu"
	p.Portal.LoginURL = "https://erp.example.edu/login.htm"
	p.Portal.Selectors.LoginButton = "#custom"
	require.NoError(t, config.SaveProfile(path, p))

	d := &fakeDiscoverer{login: discovery.Selectors{
		UsernameInput: "input[name='j_username']",
		PasswordInput: "input[name='j_password']",
		LoginButton:   "#loginbtn",
	}}
	var out bytes.Buffer
	require.NoError(t, NewDiscoverHandler(d, path, &out, false).Login(context.Background()))

	assert.Equal(t, "https://erp.example.edu/login.htm", d.url)
	saved, err := config.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "input[name='j_username']", saved.Portal.Selectors.UsernameInput)
	assert.Equal(t, "#loginbtn", saved.Portal.Selectors.LoginButton)
}

func TestDiscoverLogin_RequiresBaseURL(t *testing.T) {
	err := NewDiscoverHandler(&fakeDiscoverer{}, profilePath(t), &bytes.Buffer{}, false).Login(context.Background())
	assert.Error(t, err)
}

func TestDiscoverAPI_SavesEndpointAndMapping(t *testing.T) {
	path := profilePath(t)
	p := config.DefaultProfile()
	p.Portal.BaseURL = "https://erp.example.edu"
	require.NoError(t, config.SaveProfile(path, p))

	d := &fakeDiscoverer{api: &portal.APIDiscovery{
		Endpoint: "https://erp.example.edu/api/attendance.json",
		Sample: []attendance.RawRecord{{
			"courseName": "Maths",
			"attended":   float64(10),
			"missed":     float64(2),
		}},
		Selectors: discovery.Selectors{UsernameInput: "#u", PasswordInput: "#p", LoginButton: "#b"},
		Student:   discovery.StudentInfo{Name: "Asha"},
	}}

	var out bytes.Buffer
	err := NewDiscoverHandler(d, path, &out, false).API(context.Background(), portal.Credentials{Username: "asha", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, d.cfg.AutoDiscover)

	saved, err := config.LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://erp.example.edu/api/attendance.json", saved.Portal.AttendanceAPI)
	assert.Equal(t, "#b", saved.Portal.Selectors.LoginButton)
	assert.Equal(t, "Asha", saved.Student.Name)
	assert.Equal(t, "asha", saved.Credentials.Username)
	assert.Equal(t, "courseName", saved.Portal.FieldMappings[attendance.FieldSubject])
	assert.Empty(t, saved.Credentials.Password)
}

type fakeHistory struct {
	runs []database.FetchRun
}

func (f fakeHistory) ListRuns(context.Context, int, int) ([]database.FetchRun, error) {
	return f.runs, nil
}

func (f fakeHistory) GetRun(_ context.Context, id uint) (*database.FetchRun, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func TestHistory(t *testing.T) {
	analysis := attendance.AnalyzeAll([]attendance.SubjectRecord{
		attendance.NewSubjectRecord("Maths", "MA101", 90, 10, "", ""),
	}, attendance.DefaultThresholds())
	run := database.NewFetchRun("", "CMRIT", "asha", "", analysis)
	run.ID = 3

	var out bytes.Buffer
	h := NewHistoryHandler(fakeHistory{runs: []database.FetchRun{*run}}, &out, false)

	require.NoError(t, h.List(context.Background(), 10))
	assert.Contains(t, out.String(), "CMRIT")

	out.Reset()
	require.NoError(t, h.Show(context.Background(), 3, attendance.DefaultThresholds()))
	assert.Contains(t, out.String(), "Maths")

	assert.ErrorContains(t, h.Show(context.Background(), 99, attendance.DefaultThresholds()), "#99")
}
