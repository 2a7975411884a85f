package discovery

import (
	"context"
	"strings"
)

type StudentInfo struct {
	Name    string `yaml:"name" json:"name"`
	Roll    string `yaml:"roll" json:"roll"`
	Branch  string `yaml:"branch" json:"branch"`
	Section string `yaml:"section" json:"section"`
}

var studentStrategies = []struct {
	strategy Strategy
	set      func(*StudentInfo, string)
}{
	{Strategy{"#studentName", ".student-name", ".user-name", "#userName"}, func(s *StudentInfo, v string) { s.Name = v }},
	{Strategy{"#rollNo", ".roll-number", "#enrollmentNo", ".enrollment"}, func(s *StudentInfo, v string) { s.Roll = v }},
	{Strategy{"#branch", ".branch", "#department", ".dept"}, func(s *StudentInfo, v string) { s.Branch = v }},
	{Strategy{"#section", ".section", "#class", ".class"}, func(s *StudentInfo, v string) { s.Section = v }},
}

// Student читает профиль студента со страницы после входа.
// Для каждого поля берётся текст первого найденного элемента длиннее одного символа.
func Student(ctx context.Context, probe TextProbe) StudentInfo {
	var info StudentInfo

	for _, st := range studentStrategies {
		for _, selector := range st.strategy {
			if ctx.Err() != nil {
				return info
			}

			n, err := probe.Count(ctx, selector)
			if err != nil || n == 0 {
				continue
			}

			text, err := probe.TextContent(ctx, selector)
			if err != nil {
				continue
			}

			text = strings.TrimSpace(text)
			if len([]rune(text)) > 1 {
				st.set(&info, text)
				break
			}
		}
	}

	return info
}
