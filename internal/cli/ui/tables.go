package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"uniTrack/internal/attendance"
	"uniTrack/internal/database"
)

// RenderSubjects печатает таблицу предметов и строку итога.
func RenderSubjects(w io.Writer, subjects []attendance.SubjectAnalysis, summary attendance.Summary, colored bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Предмет", "Код", "Посещено", "%", "", "Статус", "Комментарий"})

	for _, s := range subjects {
		t.AppendRow(table.Row{
			s.Subject,
			s.SubjectCode,
			fmt.Sprintf("%d/%d", s.Present, s.Total),
			fmt.Sprintf("%.2f", s.Percentage),
			ProgressBar(s.Percentage, 10),
			StatusLabel(s.Status, colored),
			s.Message,
		})
	}

	t.AppendFooter(table.Row{
		"Итого",
		strconv.Itoa(summary.TotalSubjects),
		fmt.Sprintf("%d/%d", summary.OverallPresent, summary.OverallTotal),
		fmt.Sprintf("%.2f", summary.OverallPercentage),
		ProgressBar(summary.OverallPercentage, 10),
		StatusLabel(summary.OverallStatus, colored),
		fmt.Sprintf("safe %d · critical %d · low %d", summary.SafeCount, summary.CriticalCount, summary.LowCount),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

// RenderHistory печатает последние выгрузки из БД.
func RenderHistory(w io.Writer, runs []database.FetchRun, colored bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Когда", "Заведение", "Предметов", "%", "Статус"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Institution,
			r.SubjectCount,
			fmt.Sprintf("%.2f", r.OverallPercentage),
			StatusLabel(attendance.Status(r.OverallStatus), colored),
		})
	}
	t.Render()
}
