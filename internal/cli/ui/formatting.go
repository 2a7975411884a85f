package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"uniTrack/internal/attendance"
)

// FormatStatus возвращает иконку, цвет и текст для статуса предмета
func FormatStatus(status attendance.Status) (icon, color, text string) {
	switch status {
	case attendance.StatusSafe:
		return IconCheckmark, ColorGreen, "SAFE"
	case attendance.StatusCritical:
		return IconWarning, ColorYellow, "CRITICAL"
	case attendance.StatusLow:
		return IconCross, ColorRed, "LOW"
	default:
		return IconClock, ColorGray, string(status)
	}
}

// Colorize оборачивает текст цветом, если вывод цветной.
func Colorize(enabled bool, color, text string) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ColorReset
}

// StatusLabel - "✓ SAFE" с цветом статуса.
func StatusLabel(status attendance.Status, colored bool) string {
	icon, color, text := FormatStatus(status)
	return Colorize(colored, color, icon+" "+text)
}

// ProgressBar рисует полосу из width символов для процента 0..100.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(math.Max(0, math.Min(100, pct)) / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Ago - "5 мин назад" для отметки последней выгрузки.
func Ago(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "никогда"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "только что"
	case d < time.Hour:
		return fmt.Sprintf("%d мин назад", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d ч назад", int(d.Hours()))
	default:
		return fmt.Sprintf("%d дн назад", int(d.Hours()/24))
	}
}
