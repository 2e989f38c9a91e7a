package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDecisionLimit = 50

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed decision log at the provided path.
func Open(path string, silent bool) (*Database, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("db path required")
	}
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Decision{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveDecision inserts a decision row.
func (d *Database) SaveDecision(decision *Decision) error {
	if d == nil {
		return errors.New("database is nil")
	}
	if decision == nil {
		return errors.New("decision is nil")
	}
	if strings.TrimSpace(decision.RequestID) == "" {
		return errors.New("decision request id required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(decision).Error
}

// RecentDecisions returns up to limit decisions, newest first.
func (d *Database) RecentDecisions(limit int) ([]Decision, error) {
	if d == nil {
		return nil, errors.New("database is nil")
	}
	if limit <= 0 {
		limit = defaultDecisionLimit
	}
	var decisions []Decision
	if err := d.gorm.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&decisions).Error; err != nil {
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	return decisions, nil
}

// CountDecisions returns the number of logged decisions.
func (d *Database) CountDecisions() (int64, error) {
	if d == nil {
		return 0, errors.New("database is nil")
	}
	var count int64
	if err := d.gorm.Model(&Decision{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DecisionStats aggregates the decision log by label, agent and rule.
func (d *Database) DecisionStats() (DecisionStats, error) {
	if d == nil {
		return DecisionStats{}, errors.New("database is nil")
	}
	var stats DecisionStats
	total, err := d.CountDecisions()
	if err != nil {
		return stats, fmt.Errorf("count decisions: %w", err)
	}
	stats.Total = total
	if err := d.gorm.Model(&Decision{}).Where("failed = ?", true).Count(&stats.Failed).Error; err != nil {
		return stats, fmt.Errorf("count failed decisions: %w", err)
	}
	if stats.ByLabel, err = d.countBy("label"); err != nil {
		return stats, err
	}
	if stats.ByAgent, err = d.countBy("agent_used"); err != nil {
		return stats, err
	}
	if stats.ByRule, err = d.countBy("rule"); err != nil {
		return stats, err
	}
	return stats, nil
}

func (d *Database) countBy(column string) ([]DecisionCount, error) {
	var rows []DecisionCount
	query := d.gorm.Model(&Decision{}).
		Select(column + " AS bucket, COUNT(*) AS total").
		Where(column + " <> ''").
		Group(column).
		Order("total DESC").
		Order("bucket ASC")
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("decisions by %s: %w", column, err)
	}
	return rows, nil
}
