//go:build !wasm
// +build !wasm

package gae

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// PkceEntity is the Datastore entity for PKCE records
// Key format: flow key ("<kind>:<requestCode>")
type PkceEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	CodeVerifier string         `datastore:"code_verifier,noindex"`
	RedirectURI  string         `datastore:"redirect_uri,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
}

func (e *PkceEntity) ToPkce() *reachfive.PkceChallenge {
	return &reachfive.PkceChallenge{
		CodeVerifier: e.CodeVerifier,
		RedirectURI:  e.RedirectURI,
	}
}

// FlowEntity is the Datastore entity for pending flows
// Key format: request code
type FlowEntity struct {
	Key         *datastore.Key `datastore:"__key__"`
	FlowID      string         `datastore:"flow_id"`
	RequestCode int            `datastore:"request_code"`
	Flow        []byte         `datastore:"flow,noindex"` // JSON encoded
	CreatedAt   time.Time      `datastore:"created_at"`
}

func FlowToEntity(flow *reachfive.PendingFlow, key *datastore.Key) (*FlowEntity, error) {
	data, err := json.Marshal(flow)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow: %w", err)
	}
	return &FlowEntity{
		Key:         key,
		FlowID:      flow.ID,
		RequestCode: flow.RequestCode,
		Flow:        data,
		CreatedAt:   time.Now(),
	}, nil
}

func (e *FlowEntity) ToFlow() (*reachfive.PendingFlow, error) {
	var flow reachfive.PendingFlow
	if err := json.Unmarshal(e.Flow, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &flow, nil
}
