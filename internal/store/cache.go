// Package store хранит последнюю выгрузку посещаемости на диске.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"uniTrack/internal/attendance"
)

// ErrNoCache - кэш ещё не создан.
var ErrNoCache = errors.New("кэш посещаемости пуст")

// Snapshot - формат файла кэша.
type Snapshot struct {
	Timestamp   time.Time                  `json:"timestamp"`
	Institution string                     `json:"institution"`
	Subjects    []attendance.SubjectRecord `json:"subjects"`
}

type FileCache struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewFileCache(path string) *FileCache {
	return &FileCache{
		path: path,
		now:  time.Now,
	}
}

func (c *FileCache) Path() string {
	return c.path
}

func (c *FileCache) Save(institution string, subjects []attendance.SubjectRecord) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Timestamp:   c.now().UTC(),
		Institution: institution,
		Subjects:    subjects,
	}
	if snap.Subjects == nil {
		snap.Subjects = []attendance.SubjectRecord{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка сериализации кэша: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка создания каталога кэша: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return Snapshot{}, fmt.Errorf("ошибка записи кэша: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return Snapshot{}, fmt.Errorf("ошибка записи кэша: %w", err)
	}

	return snap, nil
}

// Load возвращает ErrNoCache, если файла нет.
func (c *FileCache) Load() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNoCache
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("ошибка чтения кэша: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("кэш повреждён: %w", err)
	}

	// total и percentage в файле могли править руками
	for i, s := range snap.Subjects {
		snap.Subjects[i] = attendance.NewSubjectRecord(s.Subject, s.SubjectCode, s.Present, s.Absent, s.Faculty, s.Term)
	}

	return snap, nil
}
