// Package attendance содержит каноническую модель записи о посещаемости,
// нормализацию сырых записей портала и чистый калькулятор статусов.
package attendance

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRecord - запись в том виде, в котором её прислал портал.
type RawRecord map[string]any

// SubjectRecord - нормализованная запись по одному предмету.
// Total всегда пересчитывается как Present+Absent, значению из источника не доверяем.
type SubjectRecord struct {
	Subject     string  `json:"subject"`
	SubjectCode string  `json:"subject_code"`
	Present     int     `json:"present"`
	Absent      int     `json:"absent"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	Faculty     string  `json:"faculty"`
	Term        string  `json:"term"`
}

func NewSubjectRecord(subject, code string, present, absent int, faculty, term string) SubjectRecord {
	total := present + absent
	return SubjectRecord{
		Subject:     subject,
		SubjectCode: code,
		Present:     present,
		Absent:      absent,
		Total:       total,
		Percentage:  Percentage(present, total),
		Faculty:     faculty,
		Term:        term,
	}
}

// Identity - ключ дедупликации (название, код).
func (r SubjectRecord) Identity() string {
	return r.Subject + "\x00" + r.SubjectCode
}

// Percentage возвращает present/total*100 с округлением до 2 знаков, 0 при total=0.
func Percentage(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(present) / float64(total) * 100)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Normalizer переводит сырые записи в SubjectRecord по маппингу полей.
// Отсутствующие в маппинге поля берутся из defaults.
type Normalizer struct {
	mapping  FieldMapping
	defaults FieldMapping
}

func NewNormalizer(mapping, defaults FieldMapping) *Normalizer {
	return &Normalizer{
		mapping:  mapping.Clone(),
		defaults: defaults.Clone(),
	}
}

func (n *Normalizer) key(field string) string {
	if k, ok := n.mapping[field]; ok && k != "" {
		return k
	}
	return n.defaults[field]
}

// Normalize нормализует записи в порядке поступления и отбрасывает дубликаты
// по (subject, subject_code): остаётся первое вхождение.
// Невалидные записи пропускаются, причины возвращаются во втором значении.
func (n *Normalizer) Normalize(raw []RawRecord) ([]SubjectRecord, []error) {
	records := make([]SubjectRecord, 0, len(raw))
	var skipped []error
	seen := make(map[string]struct{}, len(raw))

	for i, item := range raw {
		rec, err := n.normalizeOne(item)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("запись %d: %w", i, err))
			continue
		}

		id := rec.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		records = append(records, rec)
	}

	return records, skipped
}

func (n *Normalizer) normalizeOne(item RawRecord) (SubjectRecord, error) {
	if item == nil {
		return SubjectRecord{}, fmt.Errorf("пустая запись")
	}

	present, err := toCount(item[n.key(FieldPresent)])
	if err != nil {
		return SubjectRecord{}, fmt.Errorf("поле %s: %w", FieldPresent, err)
	}
	absent, err := toCount(item[n.key(FieldAbsent)])
	if err != nil {
		return SubjectRecord{}, fmt.Errorf("поле %s: %w", FieldAbsent, err)
	}

	subject := toText(item[n.key(FieldSubject)])
	if subject == "" {
		subject = "Unknown"
	}

	return NewSubjectRecord(
		subject,
		toText(item[n.key(FieldSubjectCode)]),
		present,
		absent,
		strings.TrimSpace(toText(item[n.key(FieldFaculty)])),
		toText(item[n.key(FieldTerm)]),
	), nil
}

// maxCount - верхняя граница счётчика, сумма двух таких значений не переполняет int.
const maxCount = math.MaxInt32

// toCount приводит значение к неотрицательному целому. nil означает 0.
func toCount(v any) (int, error) {
	var n float64
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		n = float64(val)
	case int64:
		n = float64(val)
	case float64:
		n = val
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, err
		}
		n = f
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("не число: %q", val)
		}
		n = f
	default:
		return 0, fmt.Errorf("неподдерживаемый тип %T", v)
	}

	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > maxCount {
		return 0, fmt.Errorf("недопустимое значение %v", n)
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("дробное количество занятий %v", n)
	}
	return int(n), nil
}

func toText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
