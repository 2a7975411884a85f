package attendance

import (
	"fmt"
	"math"
	"sort"
)

type Status string

const (
	StatusSafe     Status = "SAFE"
	StatusCritical Status = "CRITICAL"
	StatusLow      Status = "LOW"
)

// Rank задаёт порядок срочности: LOW < CRITICAL < SAFE.
func (s Status) Rank() int {
	switch s {
	case StatusLow:
		return 0
	case StatusCritical:
		return 1
	default:
		return 2
	}
}

// DefaultPriorityCount - сколько предметов показывать в списке приоритетов.
const DefaultPriorityCount = 5

// погрешность для ceil/floor после деления на долю порога
const epsilon = 1e-9

type SubjectAnalysis struct {
	Subject        string  `json:"subject"`
	SubjectCode    string  `json:"subject_code"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Total          int     `json:"total"`
	Percentage     float64 `json:"percentage"`
	Status         Status  `json:"status"`
	Threshold      float64 `json:"threshold"`
	ClassesNeeded  int     `json:"classes_needed"`
	ClassesCanMiss int     `json:"classes_can_miss"`
	Message        string  `json:"message"`
	Faculty        string  `json:"faculty"`
	Term           string  `json:"term"`
}

// Record восстанавливает запись из числовых полей анализа.
func (a SubjectAnalysis) Record() SubjectRecord {
	return NewSubjectRecord(a.Subject, a.SubjectCode, a.Present, a.Absent, a.Faculty, a.Term)
}

type Summary struct {
	TotalSubjects     int     `json:"total_subjects"`
	SafeCount         int     `json:"safe_count"`
	CriticalCount     int     `json:"critical_count"`
	LowCount          int     `json:"low_count"`
	OverallPresent    int     `json:"overall_present"`
	OverallTotal      int     `json:"overall_total"`
	OverallPercentage float64 `json:"overall_percentage"`
	OverallStatus     Status  `json:"overall_status"`
}

type Analysis struct {
	Subjects []SubjectAnalysis `json:"subjects"`
	Summary  Summary           `json:"summary"`
}

// ClassifyStatus: нижняя граница каждой полосы включительна.
func ClassifyStatus(pct, threshold, buffer float64) Status {
	switch {
	case pct >= threshold+buffer:
		return StatusSafe
	case pct >= threshold:
		return StatusCritical
	default:
		return StatusLow
	}
}

// ClassesNeeded - сколько занятий подряд нужно посетить, чтобы выйти на порог.
// При пороге 100% знаменатель равен нулю, возвращается 0.
func ClassesNeeded(attended, conducted int, thresholdPct float64) int {
	if conducted == 0 {
		return 0
	}
	if float64(attended)*100 >= thresholdPct*float64(conducted) {
		return 0
	}

	ratio := thresholdPct / 100
	denominator := 1 - ratio
	if denominator <= 0 {
		return 0
	}

	needed := math.Ceil((ratio*float64(conducted)-float64(attended))/denominator - epsilon)
	if needed < 0 {
		return 0
	}
	return int(needed)
}

// ClassesCanMiss - сколько занятий можно пропустить, оставаясь не ниже порога.
// При пороге 0% знаменатель равен нулю, возвращается 0.
func ClassesCanMiss(attended, conducted int, thresholdPct float64) int {
	if conducted == 0 {
		return 0
	}
	if float64(attended)*100 < thresholdPct*float64(conducted) {
		return 0
	}

	ratio := thresholdPct / 100
	if ratio <= 0 {
		return 0
	}

	canMiss := math.Floor((float64(attended)-ratio*float64(conducted))/ratio + epsilon)
	if canMiss < 0 {
		return 0
	}
	return int(canMiss)
}

func Analyze(r SubjectRecord, t Thresholds) SubjectAnalysis {
	// total из источника не используется
	total := r.Present + r.Absent

	threshold := ResolveThreshold(r.SubjectCode, r.Subject, t)
	pct := Percentage(r.Present, total)
	status := ClassifyStatus(pct, threshold, t.SafeBuffer)
	needed := ClassesNeeded(r.Present, total, threshold)
	canMiss := ClassesCanMiss(r.Present, total, threshold)

	return SubjectAnalysis{
		Subject:        r.Subject,
		SubjectCode:    r.SubjectCode,
		Present:        r.Present,
		Absent:         r.Absent,
		Total:          total,
		Percentage:     pct,
		Status:         status,
		Threshold:      threshold,
		ClassesNeeded:  needed,
		ClassesCanMiss: canMiss,
		Message:        message(status, needed, canMiss),
		Faculty:        r.Faculty,
		Term:           r.Term,
	}
}

func message(status Status, needed, canMiss int) string {
	switch status {
	case StatusSafe:
		return fmt.Sprintf("Safe! Can miss %d more class(es)", canMiss)
	case StatusCritical:
		return fmt.Sprintf("Critical! Can only miss %d class(es)", canMiss)
	default:
		return fmt.Sprintf("Low! Need to attend %d consecutive class(es)", needed)
	}
}

// AnalyzeAll анализирует каждый предмет и считает сводку.
// Общий статус считается по t.Default, индивидуальные пороги на него не влияют.
func AnalyzeAll(records []SubjectRecord, t Thresholds) Analysis {
	result := Analysis{
		Subjects: make([]SubjectAnalysis, 0, len(records)),
	}

	summary := &result.Summary
	for _, r := range records {
		a := Analyze(r, t)
		result.Subjects = append(result.Subjects, a)

		summary.OverallPresent += a.Present
		summary.OverallTotal += a.Total

		switch a.Status {
		case StatusSafe:
			summary.SafeCount++
		case StatusCritical:
			summary.CriticalCount++
		default:
			summary.LowCount++
		}
	}

	summary.TotalSubjects = len(records)
	summary.OverallPercentage = Percentage(summary.OverallPresent, summary.OverallTotal)
	summary.OverallStatus = ClassifyStatus(summary.OverallPercentage, t.Default, t.SafeBuffer)

	return result
}

// Priority сортирует предметы по (статус, процент) и обрезает до n.
// Сортировка стабильная, исходный срез не меняется.
func Priority(subjects []SubjectAnalysis, n int) []SubjectAnalysis {
	if n <= 0 {
		return []SubjectAnalysis{}
	}

	sorted := make([]SubjectAnalysis, len(subjects))
	copy(sorted, subjects)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Status.Rank(), sorted[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return sorted[i].Percentage < sorted[j].Percentage
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
