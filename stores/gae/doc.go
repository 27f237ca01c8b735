//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore reachfive.Store.
// It is meant for hosts running on Google Cloud Platform and supports
// multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
//   - ReachFivePkce: PKCE verifiers keyed by flow key
//   - ReachFiveFlow: pending flows keyed by request code
//
// # Namespacing
//
// Pass a namespace to keep the flows of several apps apart:
//
//	store := gae.NewDatastoreStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewDatastoreStore(client, "") // default namespace
package gae
