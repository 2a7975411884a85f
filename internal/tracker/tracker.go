// Package tracker связывает выгрузку с порталом, кэш, профиль и историю.
// Им пользуются и CLI, и REST-сервер.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"uniTrack/internal/attendance"
	"uniTrack/internal/config"
	"uniTrack/internal/database"
	"uniTrack/internal/portal"
	"uniTrack/internal/sanitizer"
	"uniTrack/internal/store"
)

type Fetcher interface {
	Fetch(ctx context.Context, cfg portal.Config) (*portal.Result, error)
}

// History - необязательное хранилище истории выгрузок.
type History interface {
	SaveRun(ctx context.Context, run *database.FetchRun) error
}

type Options struct {
	Retries    int
	RetryDelay time.Duration
}

type Tracker struct {
	fetcher     Fetcher
	cache       *store.FileCache
	history     History
	profilePath string
	opts        Options
	log         *zap.Logger
}

// New: history может быть nil, тогда история не пишется.
func New(fetcher Fetcher, cache *store.FileCache, history History, profilePath string, opts Options, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &Tracker{
		fetcher:     fetcher,
		cache:       cache,
		history:     history,
		profilePath: profilePath,
		opts:        opts,
		log:         log.Named("tracker"),
	}
}

// Report - анализ одного снимка посещаемости.
type Report struct {
	Institution string                       `json:"institution"`
	Summary     attendance.Summary           `json:"summary"`
	Subjects    []attendance.SubjectAnalysis `json:"subjects"`
	Priority    []attendance.SubjectAnalysis `json:"priority"`
	Semester    string                       `json:"semester"`
	LastFetched time.Time                    `json:"lastFetched"`
}

func BuildReport(snap store.Snapshot, th attendance.Thresholds) Report {
	analysis := attendance.AnalyzeAll(snap.Subjects, th)

	report := Report{
		Institution: snap.Institution,
		Summary:     analysis.Summary,
		Subjects:    analysis.Subjects,
		Priority:    attendance.Priority(analysis.Subjects, attendance.DefaultPriorityCount),
		LastFetched: snap.Timestamp,
	}
	if len(snap.Subjects) > 0 {
		report.Semester = snap.Subjects[0].Term
	}
	return report
}

func (t *Tracker) Profile() (config.Profile, error) {
	return config.LoadProfile(t.profilePath)
}

// Status анализирует последний сохранённый снимок, не трогая портал.
func (t *Tracker) Status() (Report, error) {
	profile, err := t.Profile()
	if err != nil {
		return Report{}, err
	}

	snap, err := t.cache.Load()
	if err != nil {
		return Report{}, err
	}

	return BuildReport(snap, profile.Thresholds), nil
}

// Refresh выгружает свежие данные, пишет кэш и историю и дополняет профиль тем,
// что удалось обнаружить на портале. Пароль никуда не сохраняется.
func (t *Tracker) Refresh(ctx context.Context, creds portal.Credentials, autoDiscover bool) (Report, error) {
	profile, err := t.Profile()
	if err != nil {
		return Report{}, err
	}

	cfg := profile.FetchConfig(creds.Username, creds.Password)
	cfg.AutoDiscover = autoDiscover

	runID := uuid.NewString()
	log := t.log.With(zap.String("run", runID))
	san := sanitizer.New(cfg.Credentials.Password)
	log.Info("Выгрузка посещаемости",
		zap.String("institution", profile.Institution.Name),
		zap.String("portal", san.SanitizeURL(cfg.BaseURL)),
		zap.Bool("auto_discover", autoDiscover),
	)

	var result *portal.Result
	attempt := 0
	err = retryFetch(ctx, t.opts.Retries, t.opts.RetryDelay, func() error {
		attempt++
		var fetchErr error
		result, fetchErr = t.fetcher.Fetch(ctx, cfg)
		if fetchErr != nil {
			log.Warn("Выгрузка не удалась",
				zap.Int("attempt", attempt),
				zap.String("kind", portal.KindOf(fetchErr).String()),
				zap.String("error", san.Sanitize(fetchErr.Error())),
			)
		}
		return fetchErr
	})
	if err != nil {
		return Report{}, err
	}

	snap, err := t.cache.Save(profile.Institution.Name, result.Subjects)
	if err != nil {
		return Report{}, fmt.Errorf("ошибка сохранения кэша: %w", err)
	}

	report := BuildReport(snap, profile.Thresholds)

	if t.history != nil {
		run := database.NewFetchRun(runID, profile.Institution.Name, cfg.Credentials.Username, result.Endpoint, attendance.Analysis{
			Subjects: report.Subjects,
			Summary:  report.Summary,
		})
		if err := t.history.SaveRun(ctx, run); err != nil {
			log.Warn("Не удалось сохранить историю", zap.Error(err))
		}
	}

	if updateProfile(&profile, cfg, result) {
		if err := config.SaveProfile(t.profilePath, profile); err != nil {
			log.Warn("Не удалось обновить профиль", zap.Error(err))
		}
	}

	log.Info("Посещаемость обновлена",
		zap.Int("subjects", len(report.Subjects)),
		zap.Float64("overall", report.Summary.OverallPercentage),
		zap.String("endpoint", san.SanitizeURL(result.Endpoint)),
	)

	return report, nil
}

// updateProfile переносит в профиль найденные селекторы, эндпоинт, сведения о студенте и логин.
func updateProfile(p *config.Profile, cfg portal.Config, r *portal.Result) bool {
	changed := false

	if !p.Portal.Selectors.Complete() && r.Selectors.Complete() {
		p.Portal.Selectors = p.Portal.Selectors.Merge(r.Selectors)
		changed = true
	}
	if p.Portal.AttendanceAPI == "" && r.Endpoint != "" {
		p.Portal.AttendanceAPI = r.Endpoint
		changed = true
	}

	for _, f := range []struct {
		dst *string
		src string
	}{
		{&p.Student.Name, r.Student.Name},
		{&p.Student.Roll, r.Student.Roll},
		{&p.Student.Branch, r.Student.Branch},
		{&p.Student.Section, r.Student.Section},
	} {
		if f.src != "" && *f.dst != f.src {
			*f.dst = f.src
			changed = true
		}
	}

	if cfg.Credentials.Username != "" && p.Credentials.Username != cfg.Credentials.Username {
		p.Credentials.Username = cfg.Credentials.Username
		changed = true
	}

	return changed
}

// IsNoCache - кэша ещё нет, нужен первый fetch.
func IsNoCache(err error) bool {
	return errors.Is(err, store.ErrNoCache)
}
