package sniffer

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"uniTrack/internal/attendance"
)

// apiPatterns - известные имена эндпоинтов с посещаемостью у популярных ERP.
var apiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)attendance.*\.json`),
	regexp.MustCompile(`(?i)getAttendance`),
	regexp.MustCompile(`(?i)student.*attendance`),
	regexp.MustCompile(`(?i)subject.*attendance`),
	regexp.MustCompile(`(?i)stu_get.*\.json`),
	regexp.MustCompile(`(?i)api.*attendance`),
	regexp.MustCompile(`(?i)marks.*attendance`),
}

var urlSubstrings = []string{".json", "attendance", "subject"}

// vocabulary - ключи, по которым запись узнаётся как посещаемость.
var vocabulary = []string{
	"present", "absent", "attendance", "attended",
	"presentcount", "absentcount", "totalclasses",
	"subject", "subjectcode", "course", "faculty",
	"percentage", "percent",
}

const minVocabularyKeys = 2

// MatchesURL проверяет, похож ли URL на источник посещаемости.
// extra - дополнительные подстроки, например настроенный эндпоинт.
func MatchesURL(url string, extra ...string) bool {
	lower := strings.ToLower(url)

	for _, s := range urlSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, s := range extra {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	for _, re := range apiPatterns {
		if re.MatchString(url) {
			return true
		}
	}

	return false
}

// ParsePayload разбирает тело ответа и возвращает записи, если это непустой
// JSON-массив объектов, первый из которых похож на посещаемость.
func ParsePayload(body []byte) ([]attendance.RawRecord, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil || len(items) == 0 {
		return nil, false
	}

	records := make([]attendance.RawRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		records = append(records, attendance.RawRecord(obj))
	}

	if !LooksLikeAttendance(records[0]) {
		return nil, false
	}

	return records, true
}

// LooksLikeAttendance: минимум два разных ключа записи содержат слово словаря.
// Один ключ засчитывается один раз, даже если в нём несколько слов.
func LooksLikeAttendance(record attendance.RawRecord) bool {
	hits := 0
	for k := range record {
		if !containsVocabularyWord(strings.ToLower(k)) {
			continue
		}
		hits++
		if hits >= minVocabularyKeys {
			return true
		}
	}

	return false
}

func containsVocabularyWord(key string) bool {
	for _, word := range vocabulary {
		if strings.Contains(key, word) {
			return true
		}
	}
	return false
}
