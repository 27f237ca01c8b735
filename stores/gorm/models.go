//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// StringMap is a helper type for storing string maps in GORM
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *StringMap) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*m = nil
		return err
	}
	return json.Unmarshal(data, m)
}

// StringSlice is a helper type for storing string slices in GORM
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value any) error {
	data, err := scanBytes(value)
	if err != nil || data == nil {
		*s = nil
		return err
	}
	return json.Unmarshal(data, s)
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported column value %T", value)
}

// PkceModel is the GORM model for PKCE records
type PkceModel struct {
	FlowKey      string    `gorm:"primaryKey;size:128"`
	CodeVerifier string    `gorm:"size:128;not null"`
	RedirectURI  string    `gorm:"size:2048"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (PkceModel) TableName() string {
	return "reachfive_pkce"
}

func (m *PkceModel) ToPkce() *reachfive.PkceChallenge {
	return &reachfive.PkceChallenge{
		CodeVerifier: m.CodeVerifier,
		RedirectURI:  m.RedirectURI,
	}
}

// FlowModel is the GORM model for pending flows
type FlowModel struct {
	RequestCode int         `gorm:"primaryKey;autoIncrement:false"`
	ID          string      `gorm:"size:64;not null"`
	Kind        string      `gorm:"size:32;not null"`
	Scope       StringSlice `gorm:"type:text"`
	Origin      string      `gorm:"size:255"`
	State       string      `gorm:"size:255"`
	Nonce       string      `gorm:"size:255"`
	Provider    string      `gorm:"size:64"`
	Extra       StringMap   `gorm:"type:text"`
	CreatedAt   time.Time
}

func (FlowModel) TableName() string {
	return "reachfive_flows"
}

func flowToModel(flow *reachfive.PendingFlow) *FlowModel {
	var scope StringSlice
	if flow.Scope != nil {
		scope = StringSlice(flow.Scope)
	}
	return &FlowModel{
		RequestCode: flow.RequestCode,
		ID:          flow.ID,
		Kind:        flow.Kind.String(),
		Scope:       scope,
		Origin:      flow.Origin,
		State:       flow.State,
		Nonce:       flow.Nonce,
		Provider:    flow.Provider,
		Extra:       StringMap(flow.Extra),
		CreatedAt:   flow.CreatedAt,
	}
}

func (m *FlowModel) ToFlow() (*reachfive.PendingFlow, error) {
	var kind reachfive.FlowKind
	if err := kind.UnmarshalText([]byte(m.Kind)); err != nil {
		return nil, err
	}
	var scope reachfive.ScopeSet
	if m.Scope != nil {
		scope = reachfive.ScopeSet(m.Scope)
	}
	return &reachfive.PendingFlow{
		ID:          m.ID,
		RequestCode: m.RequestCode,
		Kind:        kind,
		Scope:       scope,
		Origin:      m.Origin,
		State:       m.State,
		Nonce:       m.Nonce,
		Provider:    m.Provider,
		Extra:       map[string]string(m.Extra),
		CreatedAt:   m.CreatedAt,
	}, nil
}
