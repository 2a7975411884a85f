// Package database хранит историю выгрузок в PostgreSQL через GORM.
package database

import (
	"time"

	"uniTrack/internal/attendance"
)

// FetchRun - одна успешная выгрузка с порталом.
type FetchRun struct {
	ID                uint              `gorm:"primaryKey"`
	RunID             string            `gorm:"type:uuid;uniqueIndex"` // тот же run в логах
	Institution       string            `gorm:"type:varchar(255);not null"`
	Username          string            `gorm:"type:varchar(255);index"`
	OverallPercentage float64           `gorm:"not null"`
	OverallStatus     string            `gorm:"type:varchar(16);not null"`
	SubjectCount      int               `gorm:"not null"`
	Endpoint          string            `gorm:"type:text"` // эндпоинт, с которого пришли данные
	Subjects          []SubjectSnapshot `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"autoCreateTime"`
}

// SubjectSnapshot - состояние предмета на момент выгрузки.
type SubjectSnapshot struct {
	ID          uint    `gorm:"primaryKey"`
	FetchRunID  uint    `gorm:"index;not null"`
	Subject     string  `gorm:"type:varchar(255);not null"`
	SubjectCode string  `gorm:"type:varchar(64)"`
	Present     int     `gorm:"not null"`
	Absent      int     `gorm:"not null"`
	Total       int     `gorm:"not null"`
	Percentage  float64 `gorm:"not null"`
	Status      string  `gorm:"type:varchar(16);not null"`
	Faculty     string  `gorm:"type:varchar(255)"`
	Term        string  `gorm:"type:varchar(64)"`
}

// NewFetchRun строит запись истории из результата анализа.
func NewFetchRun(runID, institution, username, endpoint string, analysis attendance.Analysis) *FetchRun {
	run := &FetchRun{
		RunID:             runID,
		Institution:       institution,
		Username:          username,
		OverallPercentage: analysis.Summary.OverallPercentage,
		OverallStatus:     string(analysis.Summary.OverallStatus),
		SubjectCount:      analysis.Summary.TotalSubjects,
		Endpoint:          endpoint,
		Subjects:          make([]SubjectSnapshot, 0, len(analysis.Subjects)),
	}

	for _, s := range analysis.Subjects {
		run.Subjects = append(run.Subjects, SubjectSnapshot{
			Subject:     s.Subject,
			SubjectCode: s.SubjectCode,
			Present:     s.Present,
			Absent:      s.Absent,
			Total:       s.Total,
			Percentage:  s.Percentage,
			Status:      string(s.Status),
			Faculty:     s.Faculty,
			Term:        s.Term,
		})
	}

	return run
}

// Records восстанавливает записи предметов из снимка.
func (r *FetchRun) Records() []attendance.SubjectRecord {
	out := make([]attendance.SubjectRecord, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		out = append(out, attendance.NewSubjectRecord(s.Subject, s.SubjectCode, s.Present, s.Absent, s.Faculty, s.Term))
	}
	return out
}
