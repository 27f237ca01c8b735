//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based reachfive.Store.
// It supports any database that GORM supports (PostgreSQL, MySQL, SQLite, etc.)
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - reachfive_pkce: PKCE verifiers keyed by flow key
//   - reachfive_flows: pending flows keyed by request code
//
// # Usage
//
//	db, _ := gorm.Open(sqlite.Open("flows.db"), &gorm.Config{})
//	store, _ := gormstore.NewGormStore(db)
package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Verify interface compliance
var _ reachfive.Store = (*GormStore)(nil)

// AutoMigrate runs database migrations for all store tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PkceModel{},
		&FlowModel{},
	)
}

// GormStore implements reachfive.Store using GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the schema and returns a store on db
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate store tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) PersistPkce(ctx context.Context, flowKey string, p *reachfive.PkceChallenge) error {
	model := &PkceModel{
		FlowKey:      flowKey,
		CodeVerifier: p.CodeVerifier,
		RedirectURI:  p.RedirectURI,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}

func (s *GormStore) RetrievePkce(ctx context.Context, flowKey string) (*reachfive.PkceChallenge, error) {
	var model PkceModel
	if err := s.db.WithContext(ctx).First(&model, "flow_key = ?", flowKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reachfive.ErrMissingFlowState
		}
		return nil, err
	}
	return model.ToPkce(), nil
}

func (s *GormStore) DiscardPkce(ctx context.Context, flowKey string) error {
	return s.db.WithContext(ctx).Delete(&PkceModel{}, "flow_key = ?", flowKey).Error
}

func (s *GormStore) SaveFlow(ctx context.Context, flow *reachfive.PendingFlow) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(flowToModel(flow))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return reachfive.ErrFlowInProgress
	}
	return nil
}

// TakeFlow selects and deletes in one transaction. The delete is conditioned on
// the flow ID so a concurrent take that already removed the row loses cleanly.
func (s *GormStore) TakeFlow(ctx context.Context, requestCode int) (*reachfive.PendingFlow, error) {
	var model FlowModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "request_code = ?", requestCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reachfive.ErrMissingFlowState
			}
			return err
		}
		result := tx.Where("request_code = ? AND id = ?", requestCode, model.ID).Delete(&FlowModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return reachfive.ErrMissingFlowState
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model.ToFlow()
}

func (s *GormStore) DeleteFlow(ctx context.Context, requestCode int) error {
	return s.db.WithContext(ctx).Delete(&FlowModel{}, "request_code = ?", requestCode).Error
}
