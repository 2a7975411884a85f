package discovery

import (
	"sort"
	"strings"

	"uniTrack/internal/attendance"
)

// fieldPatterns - подстроки ключей в порядке уверенности для каждого канонического поля.
var fieldPatterns = []struct {
	field    string
	patterns []string
}{
	{attendance.FieldSubject, []string{"subject", "subjectname", "coursename", "course"}},
	{attendance.FieldSubjectCode, []string{"subjectcode", "coursecode", "code", "subcode"}},
	{attendance.FieldPresent, []string{"present", "presentcount", "attended", "attendedclasses"}},
	{attendance.FieldAbsent, []string{"absent", "absentcount", "missed", "missedclasses"}},
	{attendance.FieldTotal, []string{"total", "totalclasses", "conducted", "session", "classes"}},
	{attendance.FieldPercentage, []string{"percentage", "percent", "attendanceper", "attendancepercent"}},
	{attendance.FieldFaculty, []string{"faculty", "facultname", "teacher", "instructor", "facultyname"}},
	{attendance.FieldTerm, []string{"term", "termname", "semester", "sem"}},
}

// InferFieldMapping угадывает, какой сырой ключ отвечает за каждое каноническое поле.
// Сначала точные совпадения имени, потом вхождение подстроки. Один сырой ключ
// привязывается не более чем к одному полю. Поле без совпадений в результат не попадает.
func InferFieldMapping(sample attendance.RawRecord) attendance.FieldMapping {
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	// у map нет порядка, сортируем ради воспроизводимости
	sort.Strings(keys)

	mapping := attendance.FieldMapping{}
	bound := make(map[string]bool, len(keys))

	bind := func(match func(lowerKey, pattern string) bool) {
		for _, fp := range fieldPatterns {
			if _, done := mapping[fp.field]; done {
				continue
			}
		patterns:
			for _, pattern := range fp.patterns {
				for _, key := range keys {
					if bound[key] {
						continue
					}
					if match(strings.ToLower(key), pattern) {
						mapping[fp.field] = key
						bound[key] = true
						break patterns
					}
				}
			}
		}
	}

	bind(func(k, p string) bool { return k == p })
	bind(strings.Contains)

	return mapping
}
