package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"uniTrack/internal/attendance"
	"uniTrack/internal/cli/ui"
	"uniTrack/internal/config"
	"uniTrack/internal/discovery"
	"uniTrack/internal/portal"
)

type Discoverer interface {
	DiscoverLoginSelectors(ctx context.Context, loginURL string) (discovery.Selectors, error)
	DiscoverAttendanceAPI(ctx context.Context, cfg portal.Config) (*portal.APIDiscovery, error)
}

// DiscoverHandler изучает портал и сохраняет найденное в профиль
type DiscoverHandler struct {
	discoverer  Discoverer
	profilePath string
	out         io.Writer
	colored     bool
}

func NewDiscoverHandler(d Discoverer, profilePath string, out io.Writer, colored bool) *DiscoverHandler {
	return &DiscoverHandler{
		discoverer:  d,
		profilePath: profilePath,
		out:         out,
		colored:     colored,
	}
}

// Login ищет селекторы формы входа без авторизации.
func (h *DiscoverHandler) Login(ctx context.Context) error {
	profile, err := config.LoadProfile(h.profilePath)
	if err != nil {
		return err
	}
	loginURL := profile.FetchConfig("", "").LoginPage()
	if loginURL == "" {
		return fmt.Errorf("не задан portal.base_url, используйте `unitrack config set base_url <url>`")
	}

	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorCyan, ui.IconGlobe+" Открываю "+loginURL))
	found, err := h.discoverer.DiscoverLoginSelectors(ctx, loginURL)
	if err != nil {
		return err
	}

	h.printSelectors(found)
	if missing := found.Missing(); len(missing) > 0 {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorYellow, ui.IconWarning+" Не найдено: "+strings.Join(missing, ", ")))
	}

	profile.Portal.Selectors = found.Merge(profile.Portal.Selectors)
	return h.save(profile)
}

// API входит на портал и ищет эндпоинт с посещаемостью.
func (h *DiscoverHandler) API(ctx context.Context, creds portal.Credentials) error {
	profile, err := config.LoadProfile(h.profilePath)
	if err != nil {
		return err
	}

	cfg := profile.FetchConfig(creds.Username, creds.Password)
	cfg.AutoDiscover = true

	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorCyan, ui.IconGlobe+" Вход и поиск API посещаемости..."))
	res, err := h.discoverer.DiscoverAttendanceAPI(ctx, cfg)
	if err != nil {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorRed, ui.IconCross+" "+describeError(err)))
		return err
	}

	h.printSelectors(res.Selectors)
	if res.Selectors.Complete() {
		profile.Portal.Selectors = res.Selectors.Merge(profile.Portal.Selectors)
	}
	mergeStudent(&profile.Student, res.Student)
	if creds.Username != "" {
		profile.Credentials.Username = creds.Username
	}

	if res.Endpoint == "" {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorYellow, ui.IconWarning+" Эндпоинт с посещаемостью не найден"))
		return h.save(profile)
	}

	fmt.Fprintf(h.out, "%s Эндпоинт: %s (%d записей)\n", ui.Colorize(h.colored, ui.ColorGreen, ui.IconCheckmark), res.Endpoint, len(res.Sample))
	profile.Portal.AttendanceAPI = res.Endpoint

	if len(res.Sample) > 0 {
		mapping := discovery.InferFieldMapping(res.Sample[0])
		h.printMapping(mapping)
		if len(mapping) > 0 {
			profile.Portal.FieldMappings = mapping
		}
	}

	return h.save(profile)
}

func (h *DiscoverHandler) save(profile config.Profile) error {
	if err := config.SaveProfile(h.profilePath, profile); err != nil {
		return err
	}
	fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorGray, "Профиль сохранён: "+h.profilePath))
	return nil
}

func (h *DiscoverHandler) printSelectors(s discovery.Selectors) {
	for _, row := range [][2]string{
		{"username_input", s.UsernameInput},
		{"password_input", s.PasswordInput},
		{"login_button", s.LoginButton},
		{"attendance_trigger", s.AttendanceTrigger},
	} {
		value := row[1]
		if value == "" {
			value = ui.Colorize(h.colored, ui.ColorGray, "-")
		}
		fmt.Fprintf(h.out, "  %-20s %s\n", row[0], value)
	}
}

func (h *DiscoverHandler) printMapping(m attendance.FieldMapping) {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	fmt.Fprintln(h.out, "Сопоставление полей:")
	for _, field := range fields {
		fmt.Fprintf(h.out, "  %-14s <- %s\n", field, m[field])
	}
}

func mergeStudent(dst *discovery.StudentInfo, src discovery.StudentInfo) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Roll != "" {
		dst.Roll = src.Roll
	}
	if src.Branch != "" {
		dst.Branch = src.Branch
	}
	if src.Section != "" {
		dst.Section = src.Section
	}
}
