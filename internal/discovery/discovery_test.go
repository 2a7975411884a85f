package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"uniTrack/internal/attendance"
)

const loginPage = `<html><body>
<form action="/login" method="post">
  <input type="hidden" name="username_hint" value="abc">
  <input type="text" name="j_username" id="user">
  <input type="password" name="j_password">
  <input type="submit" value="Login">
</form>
</body></html>`

const homePage = `<html><body>
<nav>
  <ul>
    <li><a href="/profile">Profile</a></li>
    <li><a href="#" onclick="loadAttendance()">My Attendance</a></li>
  </ul>
</nav>
<div id="studentName">  Asha Verma </div>
<div class="roll-number">1CR21CS001</div>
<div id="branch">-</div>
<div class="dept">CSE</div>
</body></html>`

func probe(t *testing.T, html string) *HTMLProbe {
	t.Helper()
	p, err := NewHTMLProbe(html)
	require.NoError(t, err)
	return p
}

func TestLoginSelectors_FirstUsableCandidateWins(t *testing.T) {
	got := LoginSelectors(context.Background(), probe(t, loginPage))

	// скрытое username_hint стоит первым и отсекается проверкой видимости
	assert.Equal(t, "input[name='j_username']", got.UsernameInput)
	assert.Equal(t, "input[type='password']", got.PasswordInput)
	assert.Equal(t, "input[type='submit']", got.LoginButton)
	assert.True(t, got.Complete())
}

func TestLoginSelectors_NoCandidatesLeavesFieldsEmpty(t *testing.T) {
	got := LoginSelectors(context.Background(), probe(t, `<html><body><p>Maintenance</p></body></html>`))

	assert.Empty(t, got.UsernameInput)
	assert.False(t, got.Complete())
	assert.Equal(t, []string{"username_input", "password_input", "login_button"}, got.Missing())
}

func TestAttendanceTrigger(t *testing.T) {
	p := probe(t, homePage)

	assert.Equal(t, "text=Attendance", AttendanceTrigger(context.Background(), p))

	text, err := p.TextContent(context.Background(), "text=Attendance")
	require.NoError(t, err)
	assert.Equal(t, "My Attendance", text)
}

func TestHTMLProbe_Visibility(t *testing.T) {
	p := probe(t, `<html><body>
		<div style="display: none"><button id="a">Login</button></div>
		<button id="b" hidden>Login</button>
		<button id="c">Sign In</button>
	</body></html>`)
	ctx := context.Background()

	for _, sel := range []string{"#a", "#b", "#missing"} {
		visible, err := p.IsVisible(ctx, sel)
		require.NoError(t, err)
		assert.False(t, visible, sel)
	}

	visible, err := p.IsVisible(ctx, "button:has-text('sign in')")
	require.NoError(t, err)
	assert.True(t, visible)

	assert.Equal(t, "button:has-text('Sign In')", LoginButtonStrategy.Resolve(ctx, p))
}

func TestStudent(t *testing.T) {
	info := Student(context.Background(), probe(t, homePage))

	assert.Equal(t, StudentInfo{
		Name:   "Asha Verma",
		Roll:   "1CR21CS001",
		Branch: "CSE",
	}, info)
}

func TestInferFieldMapping(t *testing.T) {
	t.Run("portal defaults", func(t *testing.T) {
		got := InferFieldMapping(attendance.RawRecord{
			"subject": "Maths", "subjectCode": "MA101", "presentCount": 1, "absentCount": 2,
			"session": 3, "percentage": 33.3, "facultName": "X", "termName": "Sem 3",
		})
		assert.Equal(t, attendance.DefaultFieldMapping(), got)
	})

	t.Run("code is not taken as subject", func(t *testing.T) {
		got := InferFieldMapping(attendance.RawRecord{
			"SubjectName": "Maths", "SubjectCode": "MA101", "Attended": 5, "Missed": 1,
		})
		assert.Equal(t, attendance.FieldMapping{
			attendance.FieldSubject:     "SubjectName",
			attendance.FieldSubjectCode: "SubjectCode",
			attendance.FieldPresent:     "Attended",
			attendance.FieldAbsent:      "Missed",
		}, got)
	})

	t.Run("key bound once is not reused for total", func(t *testing.T) {
		got := InferFieldMapping(attendance.RawRecord{
			"subject": "Maths", "attendedClasses": 8, "missedClasses": 2,
		})
		assert.Equal(t, attendance.FieldMapping{
			attendance.FieldSubject: "subject",
			attendance.FieldPresent: "attendedClasses",
			attendance.FieldAbsent:  "missedClasses",
		}, got)
		assert.NotContains(t, got, attendance.FieldTotal)
	})

	t.Run("unknown keys omitted", func(t *testing.T) {
		got := InferFieldMapping(attendance.RawRecord{"foo": 1, "bar": 2})
		assert.Empty(t, got)
	})
}

type stubSuggester struct {
	sel Selectors
	err error
}

func (s stubSuggester) SuggestLoginSelectors(context.Context, string) (Selectors, error) {
	return s.sel, s.err
}

type htmlPage struct {
	*HTMLProbe
	html string
}

func (p htmlPage) Content(context.Context) (string, error) { return p.html, nil }

func TestDiscoverer_SuggestionIsVerified(t *testing.T) {
	html := `<html><body>
		<input name="uid"><input name="secret" type="text">
		<a id="go" class="btn">Enter</a>
	</body></html>`
	page := htmlPage{HTMLProbe: probe(t, html), html: html}

	d := New(zaptest.NewLogger(t), stubSuggester{sel: Selectors{
		UsernameInput: "input[name='uid']",
		PasswordInput: "input[name='secret']",
		LoginButton:   "#nope",
	}})

	got := d.LoginSelectors(context.Background(), page)
	assert.Equal(t, "input[name='uid']", got.UsernameInput)
	assert.Equal(t, "input[name='secret']", got.PasswordInput)
	assert.Empty(t, got.LoginButton)

	failing := New(nil, stubSuggester{err: errors.New("нет ключа")})
	assert.False(t, failing.LoginSelectors(context.Background(), page).Complete())
}
