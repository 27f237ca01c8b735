// Package fs provides a file system-based reachfive.Store.
// Records survive the hosting process being torn down while a flow is suspended.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// FSStore stores each PKCE record and pending flow as its own JSON file
type FSStore struct {
	StoragePath string
}

// NewFSStore creates a new FS-based store.
// If path is empty, defaults to <UserConfigDir>/<appName>/flows
func NewFSStore(path string, appName string) (*FSStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "reachfive"
		}
		path = filepath.Join(configDir, appName, "flows")
	}

	s := &FSStore{StoragePath: path}
	for _, dir := range []string{s.pkceDir(), s.flowDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return s, nil
}

func (s *FSStore) pkceDir() string {
	return filepath.Join(s.StoragePath, "pkce")
}

func (s *FSStore) flowDir() string {
	return filepath.Join(s.StoragePath, "flows")
}

// getPkcePath hashes the flow key so arbitrary keys map to safe filenames
func (s *FSStore) getPkcePath(flowKey string) string {
	hash := sha256.Sum256([]byte(flowKey))
	return filepath.Join(s.pkceDir(), hex.EncodeToString(hash[:])+".json")
}

func (s *FSStore) getFlowPath(requestCode int) string {
	return filepath.Join(s.flowDir(), strconv.Itoa(requestCode)+".json")
}

func (s *FSStore) PersistPkce(ctx context.Context, flowKey string, p *reachfive.PkceChallenge) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize pkce: %w", err)
	}
	return writeAtomicFile(s.getPkcePath(flowKey), data)
}

func (s *FSStore) RetrievePkce(ctx context.Context, flowKey string) (*reachfive.PkceChallenge, error) {
	data, err := os.ReadFile(s.getPkcePath(flowKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, reachfive.ErrMissingFlowState
		}
		return nil, err
	}
	var p reachfive.PkceChallenge
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pkce record: %w", err)
	}
	return &p, nil
}

func (s *FSStore) DiscardPkce(ctx context.Context, flowKey string) error {
	return removeIfExists(s.getPkcePath(flowKey))
}

func (s *FSStore) SaveFlow(ctx context.Context, flow *reachfive.PendingFlow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to serialize flow: %w", err)
	}
	err = writeExclusiveFile(s.getFlowPath(flow.RequestCode), data)
	if errors.Is(err, os.ErrExist) {
		return reachfive.ErrFlowInProgress
	}
	return err
}

// TakeFlow renames the record out of the way before reading it. Only one
// caller, in this process or another, can win the rename.
func (s *FSStore) TakeFlow(ctx context.Context, requestCode int) (*reachfive.PendingFlow, error) {
	path := s.getFlowPath(requestCode)
	suffix, err := reachfive.GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	taken := path + ".taken-" + suffix[:16]
	if err := os.Rename(path, taken); err != nil {
		if os.IsNotExist(err) {
			return nil, reachfive.ErrMissingFlowState
		}
		return nil, err
	}
	defer os.Remove(taken)

	data, err := os.ReadFile(taken)
	if err != nil {
		return nil, err
	}
	var flow reachfive.PendingFlow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to parse flow record: %w", err)
	}
	return &flow, nil
}

func (s *FSStore) DeleteFlow(ctx context.Context, requestCode int) error {
	return removeIfExists(s.getFlowPath(requestCode))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
