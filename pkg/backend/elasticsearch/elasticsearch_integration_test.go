//go:build integration

package elasticsearch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/config"
)

func TestSearchAgainstElasticsearch(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.elastic.co/elasticsearch/elasticsearch:8.15.0",
			ExposedPorts: []string{"9200/tcp"},
			Env: map[string]string{
				"discovery.type":                  "single-node",
				"xpack.security.enabled":          "true",
				"xpack.security.http.ssl.enabled": "false",
				"ELASTIC_PASSWORD":                "backplane-test",
				"ES_JAVA_OPTS":                    "-Xms512m -Xmx512m",
			},
			WaitingFor: wait.ForHTTP("/").
				WithPort("9200/tcp").
				WithBasicAuth("elastic", "backplane-test").
				WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9200")
	require.NoError(t, err)
	node := fmt.Sprintf("http://%s:%s", host, port.Port())

	t.Run("Basic", func(t *testing.T) {
		s := New(config.ElasticsearchConfig{Node: node, Username: "elastic", Password: "backplane-test"})
		require.NoError(t, s.Initialize(ctx))
		require.NoError(t, s.Connect(ctx))
		assert.Equal(t, backend.StateReady, s.State())
		require.NoError(t, s.Healthcheck(ctx))
		require.NoError(t, s.Disconnect(ctx))
	})

	t.Run("WrongPasswordIsNegativePing", func(t *testing.T) {
		s := New(config.ElasticsearchConfig{Node: node, Username: "elastic", Password: "wrong"})
		require.NoError(t, s.Initialize(ctx))
		assert.ErrorIs(t, s.Connect(ctx), backend.ErrUnreachable)
		assert.NotNil(t, s.Client())
		require.NoError(t, s.Disconnect(ctx))
	})
}
