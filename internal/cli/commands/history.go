package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"uniTrack/internal/attendance"
	"uniTrack/internal/cli/ui"
	"uniTrack/internal/database"
)

type HistoryStore interface {
	ListRuns(ctx context.Context, limit, offset int) ([]database.FetchRun, error)
	GetRun(ctx context.Context, id uint) (*database.FetchRun, error)
}

// HistoryHandler показывает историю выгрузок из БД
type HistoryHandler struct {
	repo    HistoryStore
	out     io.Writer
	colored bool
}

func NewHistoryHandler(repo HistoryStore, out io.Writer, colored bool) *HistoryHandler {
	return &HistoryHandler{
		repo:    repo,
		out:     out,
		colored: colored,
	}
}

func (h *HistoryHandler) List(ctx context.Context, limit int) error {
	runs, err := h.repo.ListRuns(ctx, limit, 0)
	if err != nil {
		return fmt.Errorf("ошибка чтения истории: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorGray, "История пуста"))
		return nil
	}

	ui.RenderHistory(h.out, runs, h.colored)
	return nil
}

// Show выводит предметы одной выгрузки, пересчитанные по текущим порогам
func (h *HistoryHandler) Show(ctx context.Context, id uint, th attendance.Thresholds) error {
	run, err := h.repo.GetRun(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("выгрузка #%d не найдена", id)
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения истории: %w", err)
	}

	fmt.Fprintf(h.out, "%s Выгрузка #%d · %s\n", ui.IconTime, run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if run.Endpoint != "" {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorGray, run.Endpoint))
	}

	analysis := attendance.AnalyzeAll(run.Records(), th)
	ui.RenderSubjects(h.out, analysis.Subjects, analysis.Summary, h.colored)
	return nil
}
