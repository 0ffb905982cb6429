package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wharfctl/wharf/internal/ir"
)

func sampleRecord() *ir.DeployedResources {
	deployed := ir.NewDeployedResources()
	deployed.Resources = []ir.RecordedResource{
		{
			"name":          "handler",
			"resource_type": "lambda_function",
			"lambda_arn":    "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
		},
	}
	return deployed
}

func TestLocalStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dev", sampleRecord()))

	loaded, err := store.Load(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, ir.SchemaVersion, loaded.SchemaVersion)
	assert.Equal(t, ir.Backend, loaded.Backend)
	require.Len(t, loaded.Resources, 1)
	assert.Equal(t, "handler", loaded.Resources[0].Name())
	assert.Equal(t, "arn:aws:lambda:us-west-2:1:function:app-dev-handler",
		loaded.Resources[0].String("lambda_arn"))
}

func TestLocalStore_MissingRecordIsEmpty(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	loaded, err := store.Load(context.Background(), "dev")
	require.NoError(t, err)
	assert.Empty(t, loaded.Resources)
	assert.Equal(t, ir.SchemaVersion, loaded.SchemaVersion)
}

func TestLocalStore_StagesAreIndependent(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dev", sampleRecord()))
	require.NoError(t, store.Save(ctx, "prod", ir.NewDeployedResources()))

	dev, err := store.Load(ctx, "dev")
	require.NoError(t, err)
	prod, err := store.Load(ctx, "prod")
	require.NoError(t, err)

	assert.Len(t, dev.Resources, 1)
	assert.Empty(t, prod.Resources)
}

func TestLocalStore_RejectsUnknownSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	recordDir := filepath.Join(dir, ".wharf", "deployed")
	require.NoError(t, os.MkdirAll(recordDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(recordDir, "dev.json"),
		[]byte(`{"resources": [], "schema_version": "1.0", "backend": "api"}`), 0644))

	_, err := NewLocalStore(dir).Load(context.Background(), "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `schema version "1.0"`)
}

func TestLocalStore_RejectsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	recordDir := filepath.Join(dir, ".wharf", "deployed")
	require.NoError(t, os.MkdirAll(recordDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(recordDir, "dev.json"),
		[]byte("not json"), 0644))

	_, err := NewLocalStore(dir).Load(context.Background(), "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse deployed record")
}

func TestRecord_NilValuesPersistEmptyRecord(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, Record(ctx, store, "dev", nil))

	loaded, err := store.Load(ctx, "dev")
	require.NoError(t, err)
	assert.NotNil(t, loaded.Resources)
	assert.Empty(t, loaded.Resources)
}

func TestLocalStore_EncryptedRoundTrip(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "test-encryption-key")
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dev", sampleRecord()))

	// On disk the record is opaque.
	raw, err := os.ReadFile(store.recordPath("dev"))
	require.NoError(t, err)
	assert.True(t, IsEncrypted(raw))
	assert.NotContains(t, string(raw), "lambda_arn")

	loaded, err := store.Load(ctx, "dev")
	require.NoError(t, err)
	require.Len(t, loaded.Resources, 1)
	assert.Equal(t, "handler", loaded.Resources[0].Name())
}

func TestLocalStore_LockConflict(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Lock("dev"))
	err := store.Lock("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by another process")

	require.NoError(t, store.Unlock("dev"))
	require.NoError(t, store.Lock("dev"))
}

func TestLocalStore_LocksPerStage(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Lock("dev"))
	require.NoError(t, store.Lock("prod"))
}

func TestLocalStore_StaleLockIsReclaimed(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Lock("dev"))

	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(store.lockPath("dev"), stale, stale))

	require.NoError(t, store.Lock("dev"))
}

func TestLocalStore_UnlockWithoutLockIsHarmless(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Unlock("dev"))
}
