package discovery

import (
	"context"
)

// Selectors формы входа и пункта меню с посещаемостью. Пустая строка - не найдено.
type Selectors struct {
	UsernameInput     string `yaml:"username_input" json:"username_input"`
	PasswordInput     string `yaml:"password_input" json:"password_input"`
	LoginButton       string `yaml:"login_button" json:"login_button"`
	AttendanceTrigger string `yaml:"attendance_trigger" json:"attendance_trigger"`
}

// Complete: найдены все три поля формы входа. Триггер необязателен.
func (s Selectors) Complete() bool {
	return s.UsernameInput != "" && s.PasswordInput != "" && s.LoginButton != ""
}

// Missing возвращает имена ненайденных обязательных полей.
func (s Selectors) Missing() []string {
	var missing []string
	if s.UsernameInput == "" {
		missing = append(missing, "username_input")
	}
	if s.PasswordInput == "" {
		missing = append(missing, "password_input")
	}
	if s.LoginButton == "" {
		missing = append(missing, "login_button")
	}
	return missing
}

// Merge заполняет пустые поля значениями из other.
func (s Selectors) Merge(other Selectors) Selectors {
	if s.UsernameInput == "" {
		s.UsernameInput = other.UsernameInput
	}
	if s.PasswordInput == "" {
		s.PasswordInput = other.PasswordInput
	}
	if s.LoginButton == "" {
		s.LoginButton = other.LoginButton
	}
	if s.AttendanceTrigger == "" {
		s.AttendanceTrigger = other.AttendanceTrigger
	}
	return s
}

var UsernameStrategy = Strategy{
	"input[name*='user']",
	"input[name*='email']",
	"input[name*='login']",
	"input[name*='username']",
	"input[name='j_username']",
	"input[id*='user']",
	"input[id*='email']",
	"input[id*='login']",
	"input[type='email']",
	"input[type='text'][autocomplete*='user']",
	"#username",
	"#email",
	"#login",
	"#userId",
}

var PasswordStrategy = Strategy{
	"input[type='password']",
	"input[name*='pass']",
	"input[name*='pwd']",
	"input[name='j_password']",
	"input[id*='pass']",
	"input[id*='pwd']",
	"#password",
	"#pass",
	"#pwd",
}

var LoginButtonStrategy = Strategy{
	"button[type='submit']",
	"input[type='submit']",
	"button[name*='login']",
	"button[id*='login']",
	"button[class*='login']",
	"input[value*='Login']",
	"input[value*='Sign']",
	"button:has-text('Login')",
	"button:has-text('Sign In')",
	"button:has-text('Submit')",
	"#loginBtn",
	"#submitBtn",
	".login-btn",
}

// TriggerStrategy - пункты меню, после клика по которым портал грузит посещаемость.
// #stud2 встречается в ERP на базе одного популярного вендора.
var TriggerStrategy = Strategy{
	"#stud2",
	"text=Attendance",
	"text=attendance",
	"a:has-text('Attendance')",
	"[href*='attendance']",
	"[onclick*='attendance']",
	".attendance",
	"#attendance",
	"text=Subject Attendance",
	"text=Course",
	"text=Subjects",
}

// LoginSelectors прогоняет таблицы для трёх полей формы входа.
// Неполный результат - нормальный исход, решает вызывающий.
func LoginSelectors(ctx context.Context, probe Probe) Selectors {
	return Selectors{
		UsernameInput: UsernameStrategy.Resolve(ctx, probe),
		PasswordInput: PasswordStrategy.Resolve(ctx, probe),
		LoginButton:   LoginButtonStrategy.Resolve(ctx, probe),
	}
}

// AttendanceTrigger - первый видимый пункт из TriggerStrategy.
func AttendanceTrigger(ctx context.Context, probe Probe) string {
	return TriggerStrategy.Resolve(ctx, probe)
}
