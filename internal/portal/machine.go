package portal

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"uniTrack/internal/attendance"
	"uniTrack/internal/discovery"
	"uniTrack/internal/sanitizer"
	"uniTrack/internal/sniffer"
)

type State int

const (
	StateStart State = iota
	StateNavigatedToLogin
	StateCredentialsFilled
	StateSubmitted
	StateAuthenticated
	StateAuthFailed
	StateError
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateNavigatedToLogin:
		return "navigated_to_login"
	case StateCredentialsFilled:
		return "credentials_filled"
	case StateSubmitted:
		return "submitted"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthFailed:
		return "auth_failed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// fallbackEndpoint - эндпоинт ERP, который чаще всего отдаёт посещаемость по предметам.
const fallbackEndpoint = "stu_getSubjectOnChangeWithSemId1.json"

// Machine ведёт одну сессию: вход, поиск данных, прямой запрос к API.
// Шаги строго последовательные, параллельно работает только sniffer.
type Machine struct {
	session    Session
	cfg        Config
	opts       Options
	discoverer *discovery.Discoverer
	sniffer    *sniffer.Sniffer
	san        *sanitizer.DataSanitizer
	log        *zap.Logger

	state     State
	selectors discovery.Selectors
	trigger   string
	student   discovery.StudentInfo
}

func newMachine(session Session, cfg Config, opts Options, discoverer *discovery.Discoverer, log *zap.Logger) *Machine {
	return &Machine{
		session:    session,
		cfg:        cfg,
		opts:       opts.withDefaults(),
		discoverer: discoverer,
		sniffer:    sniffer.New(log, cfg.AttendanceAPI),
		san:        sanitizer.New(cfg.Credentials.Username, cfg.Credentials.Password),
		log:        log,
		state:      StateStart,
	}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) transition(next State) {
	m.log.Debug("Переход состояния", zap.Stringer("from", m.state), zap.Stringer("to", next))
	m.state = next
}

// Run проходит весь сценарий и возвращает перехваченные записи в порядке поступления.
// Подписка на ответы снимается на любом выходе.
func (m *Machine) Run(ctx context.Context) ([]attendance.RawRecord, error) {
	defer m.sniffer.Detach()

	if err := m.Login(ctx); err != nil {
		return nil, err
	}

	m.student = discovery.Student(ctx, m.session)
	m.Reveal(ctx)
	m.sniffer.Detach()

	records := m.sniffer.Records()
	if len(records) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, internal("fetch cancelled", err)
		}
		return nil, noDataFound()
	}

	return records, nil
}

// Login: Start -> NavigatedToLogin -> CredentialsFilled -> Submitted -> Authenticated | AuthFailed | Error.
// Перехват ответов включается перед отправкой формы.
func (m *Machine) Login(ctx context.Context) error {
	target := m.cfg.LoginPage()
	m.log.Info("Открываем страницу входа", zap.String("url", m.san.SanitizeURL(target)))

	if err := m.session.Navigate(ctx, target); err != nil {
		m.transition(StateError)
		return internal("login page unreachable", err)
	}
	m.transition(StateNavigatedToLogin)

	sel := m.cfg.Selectors
	if !sel.Complete() && m.cfg.AutoDiscover {
		sel = sel.Merge(m.discoverer.LoginSelectors(ctx, m.session))
	}
	if !sel.Complete() {
		m.transition(StateError)
		return configurationIncomplete(sel.Missing()...)
	}

	username, ok := m.fill(ctx, m.candidates(sel.UsernameInput, discovery.UsernameStrategy), m.cfg.Credentials.Username)
	if !ok {
		m.transition(StateError)
		return configurationIncomplete("username_input")
	}
	password, ok := m.fill(ctx, m.candidates(sel.PasswordInput, discovery.PasswordStrategy), m.cfg.Credentials.Password)
	if !ok {
		m.transition(StateError)
		return configurationIncomplete("password_input")
	}
	m.transition(StateCredentialsFilled)

	m.sniffer.Attach(m.session)

	button, ok := m.click(ctx, m.candidates(sel.LoginButton, discovery.LoginButtonStrategy))
	if !ok {
		m.transition(StateError)
		return configurationIncomplete("login_button")
	}
	m.transition(StateSubmitted)

	m.selectors = discovery.Selectors{
		UsernameInput:     username,
		PasswordInput:     password,
		LoginButton:       button,
		AttendanceTrigger: sel.AttendanceTrigger,
	}

	if err := m.session.Settle(ctx, m.opts.LoginSettle); err != nil {
		m.transition(StateError)
		return internal("login cancelled", err)
	}

	landed := m.session.URL()
	if reason, failed := classifyLoginURL(landed); failed {
		m.transition(StateAuthFailed)
		m.log.Warn("Портал отказал во входе",
			zap.Stringer("reason", reason),
			zap.String("url", m.san.SanitizeURL(landed)),
		)
		return authFailed(reason)
	}

	m.transition(StateAuthenticated)
	m.log.Info("Вход выполнен", zap.String("url", m.san.SanitizeURL(landed)))
	return nil
}

// Reveal кликает пункты меню по очереди, пока sniffer не поймает данные.
// Если не помогло ни одно, запрашивает известные эндпоинты напрямую.
func (m *Machine) Reveal(ctx context.Context) {
	triggers := discovery.TriggerStrategy.With(m.cfg.Selectors.AttendanceTrigger)
	m.sniffer.Sync()

	for _, trigger := range triggers {
		if m.sniffer.HasData() || ctx.Err() != nil {
			break
		}
		if !discovery.Usable(ctx, m.session, trigger) {
			continue
		}

		if err := m.session.Click(ctx, trigger); err != nil {
			m.log.Debug("Клик по пункту меню не удался", zap.String("selector", trigger), zap.Error(err))
			continue
		}
		_ = m.session.Settle(ctx, m.opts.TriggerSettle)
		m.sniffer.Sync()

		if m.sniffer.HasData() {
			m.trigger = trigger
			m.log.Info("Данные появились после клика", zap.String("selector", trigger))
			break
		}
	}

	if m.sniffer.HasData() {
		return
	}

	for _, endpoint := range m.apiCandidates() {
		if ctx.Err() != nil {
			return
		}

		m.log.Info("Пробуем эндпоинт напрямую", zap.String("url", m.san.SanitizeURL(endpoint)))
		if err := m.session.Navigate(ctx, endpoint); err != nil {
			m.log.Debug("Эндпоинт недоступен", zap.Error(err))
			continue
		}
		_ = m.session.Settle(ctx, m.opts.APISettle)
		m.sniffer.Sync()

		if m.sniffer.HasData() {
			return
		}
	}
}

// candidates: настроенный селектор всегда первый. Таблица подключается только в режиме автопоиска.
func (m *Machine) candidates(configured string, table discovery.Strategy) discovery.Strategy {
	if !m.cfg.AutoDiscover {
		return discovery.Strategy{configured}
	}
	return table.With(configured)
}

func (m *Machine) fill(ctx context.Context, candidates discovery.Strategy, value string) (string, bool) {
	for _, selector := range candidates {
		if ctx.Err() != nil {
			return "", false
		}
		if err := m.session.Fill(ctx, selector, value); err != nil {
			m.log.Debug("Поле не заполнено", zap.String("selector", selector), zap.String("error", m.san.Sanitize(err.Error())))
			continue
		}
		return selector, true
	}
	return "", false
}

func (m *Machine) click(ctx context.Context, candidates discovery.Strategy) (string, bool) {
	for _, selector := range candidates {
		if ctx.Err() != nil {
			return "", false
		}
		if err := m.session.Click(ctx, selector); err != nil {
			m.log.Debug("Клик не удался", zap.String("selector", selector), zap.Error(err))
			continue
		}
		return selector, true
	}
	return "", false
}

// apiCandidates: настроенный эндпоинт, затем запасной, оба относительно базового адреса.
func (m *Machine) apiCandidates() []string {
	base := baseOf(m.cfg)
	if base == "" {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, endpoint := range []string{m.cfg.AttendanceAPI, fallbackEndpoint} {
		if endpoint == "" {
			continue
		}
		full := joinURL(base, endpoint)
		if !seen[full] {
			seen[full] = true
			out = append(out, full)
		}
	}
	return out
}

// baseOf возвращает base_url, а без него - схему и хост адреса входа.
func baseOf(cfg Config) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}

	u, err := url.Parse(cfg.LoginURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func joinURL(base, endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
