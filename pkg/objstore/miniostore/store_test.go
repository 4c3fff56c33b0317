package miniostore_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"trainer/pkg/objstore/miniostore"
	"trainer/pkg/serrors"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAccessKey = "minioadmin"
	testSecretKey = "minioadmin"
	testBucket    = "trainer-test"
)

func setupTestStore(t *testing.T) *miniostore.Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		ExposedPorts: []string{"9000"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     testAccessKey,
			"MINIO_ROOT_PASSWORD": testSecretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForListeningPort("9000"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	store, err := miniostore.New(ctx, miniostore.Options{
		Endpoint:  fmt.Sprintf("%s:%d", host, mappedPort.Int()),
		AccessKey: testAccessKey,
		SecretKey: testSecretKey,
		Bucket:    testBucket,
	})
	require.NoError(t, err)

	return store
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	content := "longitude,latitude\n-122.23,37.88\n"
	info, err := store.Put(ctx, "datasets/x/train.csv", "text/csv", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)
	require.Equal(t, "datasets/x/train.csv", info.Key)
	require.EqualValues(t, len(content), info.Size)
	require.NotEmpty(t, info.ETag)

	rc, err := store.Get(ctx, "datasets/x/train.csv")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, content, string(b))
}

func TestStore_GetMissingKey(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), "does/not/exist")
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	content := "{}"
	_, err := store.Put(ctx, "runs/x/model.json", "application/json", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "runs/x/model.json"))

	_, err = store.Get(ctx, "runs/x/model.json")
	require.ErrorIs(t, err, serrors.ErrNotFound)

	// deleting a missing key is fine
	require.NoError(t, store.Delete(ctx, "runs/x/model.json"))
}

func TestStore_PresignGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	content := "artifact"
	_, err := store.Put(ctx, "runs/y/model.json", "application/json", strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	u, err := store.PresignGet(ctx, "runs/y/model.json", time.Minute)
	require.NoError(t, err)
	require.Contains(t, u, "runs/y/model.json")
	require.Contains(t, u, "X-Amz-Signature")
}
