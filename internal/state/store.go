package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wharfctl/wharf/internal/ir"
)

// Store persists the deployed-resource record per stage. The record is
// what the next run diffs and sweeps against.
type Store interface {
	// Load reads the record for a stage. A missing record is an empty
	// record, not an error.
	Load(ctx context.Context, stage string) (*ir.DeployedResources, error)

	// Save writes the record for a stage without disturbing other
	// stages' records.
	Save(ctx context.Context, stage string, deployed *ir.DeployedResources) error

	// Lock acquires an exclusive lock on a stage's record.
	Lock(stage string) error

	// Unlock releases the lock on a stage's record.
	Unlock(stage string) error
}

// Record persists the results of a successful deploy. Called only
// after the executor completed every instruction, so a failed run
// never overwrites the last good record.
func Record(ctx context.Context, store Store, stage string, values []ir.RecordedResource) error {
	deployed := ir.NewDeployedResources()
	if values != nil {
		deployed.Resources = values
	}
	return store.Save(ctx, stage, deployed)
}

// LocalStore keeps one JSON record per stage under the project's
// .wharf/deployed directory. Records are transparently encrypted when
// WHARF_STATE_ENCRYPTION_KEY is set.
type LocalStore struct {
	dir string
}

func NewLocalStore(projectDir string) *LocalStore {
	return &LocalStore{dir: filepath.Join(projectDir, ".wharf", "deployed")}
}

func (s *LocalStore) Load(_ context.Context, stage string) (*ir.DeployedResources, error) {
	path := s.recordPath(stage)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ir.NewDeployedResources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deployed record %s: %w", path, err)
	}
	return decodeRecord(raw, path)
}

func (s *LocalStore) Save(_ context.Context, stage string, deployed *ir.DeployedResources) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create deployed record directory: %w", err)
	}

	content, err := encodeRecord(deployed)
	if err != nil {
		return err
	}

	path := s.recordPath(stage)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write deployed record %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) recordPath(stage string) string {
	return filepath.Join(s.dir, stage+".json")
}

// decodeRecord parses a stored record, decrypting it first when it
// carries the encrypted header. Records with an unrecognized schema
// version are rejected rather than reinterpreted.
func decodeRecord(raw []byte, path string) (*ir.DeployedResources, error) {
	if IsEncrypted(raw) {
		decrypted, err := Decrypt(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt deployed record %s: %w", path, err)
		}
		raw = decrypted
	}

	var deployed ir.DeployedResources
	if err := json.Unmarshal(raw, &deployed); err != nil {
		return nil, fmt.Errorf("failed to parse deployed record %s: %w", path, err)
	}
	if deployed.SchemaVersion != ir.SchemaVersion {
		return nil, fmt.Errorf("deployed record %s has schema version %q, expected %q",
			path, deployed.SchemaVersion, ir.SchemaVersion)
	}
	return &deployed, nil
}

func encodeRecord(deployed *ir.DeployedResources) ([]byte, error) {
	content, err := json.MarshalIndent(deployed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode deployed record: %w", err)
	}
	encrypted, err := Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt deployed record: %w", err)
	}
	return encrypted, nil
}
