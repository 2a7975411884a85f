package commands

import (
	"fmt"
	"io"
	"time"

	"uniTrack/internal/attendance"
	"uniTrack/internal/cli/ui"
	"uniTrack/internal/config"
	"uniTrack/internal/tracker"
)

type StatusService interface {
	Profile() (config.Profile, error)
	Status() (tracker.Report, error)
}

// StatusHandler показывает анализ последней выгрузки из кэша
type StatusHandler struct {
	svc     StatusService
	out     io.Writer
	colored bool
	now     func() time.Time
}

func NewStatusHandler(svc StatusService, out io.Writer, colored bool) *StatusHandler {
	return &StatusHandler{
		svc:     svc,
		out:     out,
		colored: colored,
		now:     time.Now,
	}
}

func (h *StatusHandler) Show() error {
	report, err := h.svc.Status()
	if tracker.IsNoCache(err) {
		fmt.Fprintln(h.out, ui.Colorize(h.colored, ui.ColorYellow, ui.IconWarning+" Данных ещё нет"))
		ui.PrintTip(h.out, "выполните `unitrack fetch`", h.colored)
		return nil
	}
	if err != nil {
		return err
	}

	profile, err := h.svc.Profile()
	if err != nil {
		return err
	}

	printReport(h.out, report, profile.Student.Name, h.colored)
	fmt.Fprintf(h.out, "%s Обновлено: %s\n", ui.IconTime, ui.Ago(report.LastFetched, h.now()))
	return nil
}

func printReport(w io.Writer, report tracker.Report, student string, colored bool) {
	ui.PrintBanner(w, report.Institution, student, colored)
	if report.Semester != "" {
		fmt.Fprintf(w, "Семестр: %s\n", report.Semester)
	}

	ui.RenderSubjects(w, report.Subjects, report.Summary, colored)

	var attention []attendance.SubjectAnalysis
	for _, s := range report.Priority {
		if s.Status != attendance.StatusSafe {
			attention = append(attention, s)
		}
	}
	if len(attention) == 0 {
		fmt.Fprintln(w, ui.Colorize(colored, ui.ColorGreen, ui.IconCheckmark+" Все предметы в безопасной зоне"))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.Colorize(colored, ui.ColorBold, "Требуют внимания:"))
	for i, s := range attention {
		fmt.Fprintf(w, "  %d. %s (%.2f%%) %s\n", i+1, s.Subject, s.Percentage, s.Message)
	}
}
