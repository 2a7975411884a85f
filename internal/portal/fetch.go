package portal

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"uniTrack/internal/attendance"
	"uniTrack/internal/discovery"
)

type Fetcher struct {
	launch     Launcher
	discoverer *discovery.Discoverer
	opts       Options
	log        *zap.Logger
}

func NewFetcher(launch Launcher, discoverer *discovery.Discoverer, opts Options, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if discoverer == nil {
		discoverer = discovery.New(log, nil)
	}
	return &Fetcher{
		launch:     launch,
		discoverer: discoverer,
		opts:       opts.withDefaults(),
		log:        log.Named("portal"),
	}
}

// Result - нормализованные записи и всё, что удалось узнать о портале попутно.
type Result struct {
	Subjects  []attendance.SubjectRecord
	Student   discovery.StudentInfo
	Selectors discovery.Selectors
	Endpoint  string
	Mapping   attendance.FieldMapping
}

// APIDiscovery - найденный эндпоинт с посещаемостью и образец его ответа.
type APIDiscovery struct {
	Endpoint  string
	Sample    []attendance.RawRecord
	Selectors discovery.Selectors
	Student   discovery.StudentInfo
}

// Fetch выполняет один полный запрос в отдельной сессии браузера.
// Любая ошибка - *FetchError, сессия закрывается на любом выходе.
func (f *Fetcher) Fetch(ctx context.Context, cfg Config) (*Result, error) {
	if err := preflight(cfg); err != nil {
		return nil, err
	}

	var m *Machine
	var raw []attendance.RawRecord
	err := f.withSession(ctx, cfg, func(session Session) error {
		m = newMachine(session, cfg, f.opts, f.discoverer, f.log)

		var err error
		raw, err = m.Run(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	mapping := cfg.FieldMappings
	if len(mapping) == 0 {
		mapping = discovery.InferFieldMapping(raw[0])
		f.log.Debug("Сопоставление полей выведено по образцу", zap.Any("mapping", mapping))
	}

	subjects, skipped := attendance.NewNormalizer(mapping, attendance.DefaultFieldMapping()).Normalize(raw)
	for _, e := range skipped {
		f.log.Warn("Запись пропущена", zap.Error(e))
	}
	if len(subjects) == 0 {
		return nil, noDataFound()
	}

	res := &Result{
		Subjects:  subjects,
		Student:   m.student,
		Selectors: m.selectors,
		Mapping:   mapping,
	}
	if m.trigger != "" {
		res.Selectors.AttendanceTrigger = m.trigger
	}
	if best, ok := m.sniffer.BestMatch(); ok {
		res.Endpoint = best.URL
	}

	f.log.Info("Посещаемость получена", zap.Int("subjects", len(subjects)), zap.Int("skipped", len(skipped)))
	return res, nil
}

// DiscoverLoginSelectors открывает страницу и ищет поля формы входа.
// Неполный результат не ошибка: решает вызывающий.
func (f *Fetcher) DiscoverLoginSelectors(ctx context.Context, loginURL string) (discovery.Selectors, error) {
	var found discovery.Selectors
	err := f.withSession(ctx, Config{}, func(session Session) error {
		if err := session.Navigate(ctx, loginURL); err != nil {
			return internal("login page unreachable", err)
		}
		found = f.discoverer.LoginSelectors(ctx, session)
		return nil
	})

	return found, err
}

// DiscoverAttendanceAPI входит на портал и возвращает URL, чей ответ содержал больше всего записей.
// Если данных нет, Endpoint пустой и ошибка не возвращается.
func (f *Fetcher) DiscoverAttendanceAPI(ctx context.Context, cfg Config) (*APIDiscovery, error) {
	if err := preflight(cfg); err != nil {
		return nil, err
	}

	out := &APIDiscovery{}
	err := f.withSession(ctx, cfg, func(session Session) error {
		m := newMachine(session, cfg, f.opts, f.discoverer, f.log)

		_, err := m.Run(ctx)
		out.Selectors = m.selectors
		if m.trigger != "" {
			out.Selectors.AttendanceTrigger = m.trigger
		}
		out.Student = m.student

		if KindOf(err) == KindNoDataFound {
			return nil
		}
		if err != nil {
			return err
		}

		if best, ok := m.sniffer.BestMatch(); ok {
			out.Endpoint = best.URL
			out.Sample = best.Records
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// withSession открывает сессию, гарантирует её закрытие и превращает панику во внутреннюю ошибку.
func (f *Fetcher) withSession(ctx context.Context, cfg Config, fn func(Session) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("Паника в сессии браузера", zap.Any("panic", r))
			err = internal("unexpected failure", fmt.Errorf("panic: %v", r))
		}
	}()

	session, err := f.launch(ctx)
	if err != nil {
		return internal("browser launch failed", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			f.log.Warn("Ошибка закрытия браузера", zap.Error(cerr))
		}
	}()

	err = fn(session)
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return internal("unexpected failure", err)
}

// preflight проверяет конфигурацию до запуска браузера.
func preflight(cfg Config) error {
	var missing []string
	if cfg.LoginPage() == "" {
		missing = append(missing, "base_url")
	}
	if cfg.Credentials.Username == "" {
		missing = append(missing, "username")
	}
	if cfg.Credentials.Password == "" {
		missing = append(missing, "password")
	}
	if !cfg.AutoDiscover {
		missing = append(missing, cfg.Selectors.Missing()...)
	}

	if len(missing) > 0 {
		return configurationIncomplete(missing...)
	}
	return nil
}
