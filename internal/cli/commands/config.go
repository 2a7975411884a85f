package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"uniTrack/internal/attendance"
	"uniTrack/internal/cli/ui"
	"uniTrack/internal/config"
)

// Asker - источник ответов пользователя для интерактивной настройки
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// ConfigHandler читает и меняет профиль портала
type ConfigHandler struct {
	profilePath string
	out         io.Writer
	colored     bool
}

func NewConfigHandler(profilePath string, out io.Writer, colored bool) *ConfigHandler {
	return &ConfigHandler{
		profilePath: profilePath,
		out:         out,
		colored:     colored,
	}
}

func (h *ConfigHandler) Show() error {
	profile, err := config.LoadProfile(h.profilePath)
	if err != nil {
		return err
	}
	profile.Credentials.Password = ""

	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("ошибка сериализации профиля: %w", err)
	}

	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorGray, "# "+h.profilePath))
	_, err = h.out.Write(data)
	return err
}

// Set меняет одно поле профиля. Ключи совпадают с путями в YAML.
func (h *ConfigHandler) Set(key, value string) error {
	profile, err := config.LoadProfile(h.profilePath)
	if err != nil {
		return err
	}

	if err := setField(&profile, key, strings.TrimSpace(value)); err != nil {
		return err
	}

	if err := config.SaveProfile(h.profilePath, profile); err != nil {
		return err
	}
	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorGreen, ui.IconCheckmark+" "+key+" = "+value))
	return nil
}

// Init задаёт основные поля профиля вопросами. Пустой ответ оставляет текущее значение.
func (h *ConfigHandler) Init(ctx context.Context, asker Asker) error {
	profile, err := config.LoadProfile(h.profilePath)
	if err != nil {
		return err
	}

	questions := []struct {
		key      string
		question string
		current  string
	}{
		{"institution.name", "Название учебного заведения", profile.Institution.Name},
		{"institution.short_name", "Короткое название", profile.Institution.ShortName},
		{"portal.base_url", "Адрес портала (ERP)", profile.Portal.BaseURL},
		{"portal.login_url", "Страница входа, если отличается", profile.Portal.LoginURL},
		{"credentials.username", "Логин", profile.Credentials.Username},
	}

	for _, q := range questions {
		prompt := q.question
		if q.current != "" {
			prompt += " [" + q.current + "]"
		}
		answer, err := asker.Ask(ctx, prompt)
		if err != nil {
			return err
		}
		if answer == "" {
			continue
		}
		if err := setField(&profile, q.key, answer); err != nil {
			return err
		}
	}

	if err := config.SaveProfile(h.profilePath, profile); err != nil {
		return err
	}
	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorGreen, ui.IconCheckmark+" Профиль сохранён: "+h.profilePath))
	ui.PrintTip(h.out, "выполните `unitrack discover`, чтобы найти форму входа", h.colored)
	return nil
}

func setField(p *config.Profile, key, value string) error {
	if keyword, ok := strings.CutPrefix(key, "thresholds.custom."); ok {
		threshold, err := parsePercent(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		setCustomThreshold(&p.Thresholds, keyword, threshold)
		return nil
	}

	strField := map[string]*string{
		"institution.name":             &p.Institution.Name,
		"institution.short_name":       &p.Institution.ShortName,
		"institution.color":            &p.Institution.Color,
		"portal.base_url":              &p.Portal.BaseURL,
		"portal.login_url":             &p.Portal.LoginURL,
		"portal.attendance_api":        &p.Portal.AttendanceAPI,
		"selectors.username_input":     &p.Portal.Selectors.UsernameInput,
		"selectors.password_input":     &p.Portal.Selectors.PasswordInput,
		"selectors.login_button":       &p.Portal.Selectors.LoginButton,
		"selectors.attendance_trigger": &p.Portal.Selectors.AttendanceTrigger,
		"credentials.username":         &p.Credentials.Username,
	}
	if dst, ok := strField[key]; ok {
		*dst = value
		return nil
	}

	switch key {
	case "thresholds.default":
		v, err := parsePercent(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.Thresholds.Default = v
	case "thresholds.safe_buffer":
		v, err := parsePercent(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		p.Thresholds.SafeBuffer = v
	case "credentials.password":
		return fmt.Errorf("пароль не сохраняется, используйте UNITRACK_PASSWORD или ввод при запуске")
	default:
		return fmt.Errorf("неизвестный ключ %q", key)
	}
	return nil
}

func setCustomThreshold(t *attendance.Thresholds, keyword string, threshold float64) {
	for i := range t.Custom {
		if t.Custom[i].Keyword == keyword {
			t.Custom[i].Threshold = threshold
			return
		}
	}
	t.Custom = append(t.Custom, attendance.ThresholdRule{Keyword: keyword, Threshold: threshold})
}

func parsePercent(value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("ожидалось число: %w", err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("значение %v вне диапазона 0..100", v)
	}
	return v, nil
}
