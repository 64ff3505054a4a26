// Package mongotest provides a disposable MongoDB instance for integration
// tests, mirroring test/database's testcontainers-based Postgres setup but
// for the document store the pipeline actually persists to.
package mongotest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/analytiqhub/docrouter/pkg/mongostore"
)

// NewTestClient creates a test mongostore.Client.
// In CI (when CI_MONGO_URI is set): connects to an external MongoDB service
// container. In local dev: spins up a testcontainers generic mongo:7
// container. Cleaned up automatically when the test ends.
func NewTestClient(t *testing.T) *mongostore.Client {
	t.Helper()
	ctx := context.Background()

	uri := os.Getenv("CI_MONGO_URI")
	if uri == "" {
		t.Log("Using testcontainers for MongoDB")
		req := testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(30 * time.Second),
		}
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(container); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		host, err := container.Host(ctx)
		require.NoError(t, err)
		port, err := container.MappedPort(ctx, "27017")
		require.NoError(t, err)
		uri = fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	} else {
		t.Log("Using external MongoDB from CI_MONGO_URI")
	}

	dbName := fmt.Sprintf("docrouter_test_%d", time.Now().UnixNano())
	client, err := mongostore.NewClient(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.DB().Drop(context.Background())
		_ = client.Close(context.Background())
	})

	return client
}
