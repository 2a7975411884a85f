package ui

import (
	"fmt"
	"io"
)

// PrintBanner выводит заголовок с названием учебного заведения и студентом
func PrintBanner(w io.Writer, institution, student string, colored bool) {
	fmt.Fprintln(w, Colorize(colored, ColorBold, IconChart+" UniTrack · "+institution))
	if student != "" {
		fmt.Fprintln(w, Colorize(colored, ColorGray, IconUser+" "+student))
	}
	fmt.Fprintln(w)
}

// PrintTip выводит подсказку следующего шага
func PrintTip(w io.Writer, text string, colored bool) {
	fmt.Fprintln(w, Colorize(colored, ColorCyan, IconBulb+" Совет:")+" "+text)
}
