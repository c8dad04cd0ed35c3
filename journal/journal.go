// Package journal persists fills and session snapshots to SQLite.
// 纯外围协作者：核心不依赖它的成功与否。
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ping-maker-go/session"
)

// FillRecord 一笔完成的回合交易。
type FillRecord struct {
	ID         uint      `gorm:"primaryKey"`
	LayerID    string    `gorm:"index"`
	Symbol     string    `gorm:"index"`
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
	Emergency  bool // 是否经由紧急平仓退出
	OpenedAt   time.Time
	ClosedAt   time.Time `gorm:"index"`
}

// SessionSnapshot 周期性的会话聚合快照。
type SessionSnapshot struct {
	ID                uint `gorm:"primaryKey"`
	TotalPnL          float64
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	ConsecutiveLosses int
	DailyDrawdown     float64
	TakenAt           time.Time `gorm:"index"`
}

// Journal SQLite 交易流水。
type Journal struct {
	db *gorm.DB
}

// Open 打开（或创建）流水库并迁移表结构。
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.AutoMigrate(&FillRecord{}, &SessionSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// RecordFill 写入一条回合记录。
func (j *Journal) RecordFill(rec FillRecord) error {
	if j == nil {
		return nil
	}
	return j.db.Create(&rec).Error
}

// Snapshot 写入一条会话快照。
func (j *Journal) Snapshot(v session.View, at time.Time) error {
	if j == nil {
		return nil
	}
	return j.db.Create(&SessionSnapshot{
		TotalPnL:          v.TotalPnL,
		TotalTrades:       v.TotalTrades,
		WinningTrades:     v.WinningTrades,
		LosingTrades:      v.LosingTrades,
		ConsecutiveLosses: v.ConsecutiveLosses,
		DailyDrawdown:     v.DailyDrawdown,
		TakenAt:           at,
	}).Error
}

// RecentFills 返回最近 n 条回合记录（新到旧）。
func (j *Journal) RecentFills(n int) ([]FillRecord, error) {
	if j == nil {
		return nil, nil
	}
	var out []FillRecord
	err := j.db.Order("closed_at desc").Limit(n).Find(&out).Error
	return out, err
}

// Close 关闭底层连接。
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
