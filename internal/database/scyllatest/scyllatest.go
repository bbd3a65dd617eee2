// Package scyllatest runs the production CQL schema against a throwaway
// single-node ScyllaDB container for store tests.
package scyllatest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "scylladb/scylla:5.4"

// Run starts ScyllaDB, applies the statements of schemaPath with every
// keyspace reduced to one replica, and returns a session on keyspace. The
// test is skipped in -short mode or without a container runtime.
func Run(t *testing.T, schemaPath, keyspace string) *gocql.Session {
	t.Helper()
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.Run(ctx, image,
		testcontainers.WithExposedPorts("9042/tcp"),
		testcontainers.WithCmd("--smp", "1", "--memory", "512M", "--overprovisioned", "1", "--developer-mode", "1"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("initialization completed").
				WithStartupTimeout(3*time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "9042/tcp")
	require.NoError(t, err)

	admin := connect(t, host, port.Int(), "")
	for _, stmt := range schema(t, schemaPath) {
		require.NoError(t, admin.Query(stmt).WithContext(ctx).Exec(), stmt)
	}
	admin.Close()

	session := connect(t, host, port.Int(), keyspace)
	t.Cleanup(session.Close)
	return session
}

func connect(t *testing.T, host string, port int, keyspace string) *gocql.Session {
	t.Helper()
	cluster := gocql.NewCluster(host)
	cluster.Port = port
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.One
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 10 * time.Second
	// The node advertises its container address, unreachable from the host.
	cluster.DisableInitialHostLookup = true

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute

	var session *gocql.Session
	err := backoff.Retry(func() error {
		var err error
		session, err = cluster.CreateSession()
		return err
	}, b)
	require.NoError(t, err)
	return session
}

// schema splits a CQL script into statements. CREATE KEYSPACE statements
// are rewritten to a single-replica SimpleStrategy.
func schema(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		fields := strings.Fields(stmt)
		if len(fields) > 5 && strings.EqualFold(fields[1], "KEYSPACE") {
			stmt = "CREATE KEYSPACE IF NOT EXISTS " + fields[5] +
				" WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}"
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}
