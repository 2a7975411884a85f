package database

import (
	"context"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveRun сохраняет выгрузку вместе с предметами в одной транзакции.
func (r *HistoryRepository) SaveRun(ctx context.Context, run *FetchRun) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
}

func (r *HistoryRepository) GetRun(ctx context.Context, id uint) (*FetchRun, error) {
	var run FetchRun
	if err := r.db.WithContext(ctx).Preload("Subjects").First(&run, id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns - последние выгрузки, новые первыми, без предметов.
func (r *HistoryRepository) ListRuns(ctx context.Context, limit, offset int) ([]FetchRun, error) {
	var runs []FetchRun
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
