package database

import (
	"testing"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ScyllaHosts:    []string{"10.0.0.1", "10.0.0.2"},
		ScyllaProducts: config.ScyllaKeyspace{Keyspace: "shop_products", Role: "products_rw", Password: "p"},
		ScyllaOrders:   config.ScyllaKeyspace{Keyspace: "shop_orders", Role: "orders_rw", Password: "o"},
	}
}

func TestKeyspaceConfigs(t *testing.T) {
	configs := keyspaceConfigs(testConfig())

	require.Len(t, configs, 2)
	orders := configs["shop_orders"]
	assert.Equal(t, "orders_rw", orders.Username)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, orders.Hosts)
	assert.Equal(t, gocql.Quorum, orders.Consistency)
}

func TestKeyspaceConfigs_SkipsUnset(t *testing.T) {
	cfg := testConfig()
	cfg.ScyllaProducts.Keyspace = ""

	configs := keyspaceConfigs(cfg)
	assert.Len(t, configs, 1)
	assert.Contains(t, configs, "shop_orders")
}

func TestCreateScyllaCluster(t *testing.T) {
	cfg := keyspaceConfigs(testConfig())["shop_products"]
	cfg.SSLEnabled = true
	cfg.CACertPath = "/etc/scylla/ca.pem"

	cluster := createScyllaCluster(cfg)
	assert.Equal(t, "shop_products", cluster.Keyspace)
	assert.Equal(t, gocql.LocalSerial, cluster.SerialConsistency)
	require.NotNil(t, cluster.SslOpts)
	assert.Equal(t, "/etc/scylla/ca.pem", cluster.SslOpts.CaPath)
	auth, ok := cluster.Authenticator.(gocql.PasswordAuthenticator)
	require.True(t, ok)
	assert.Equal(t, "products_rw", auth.Username)
}

func TestSession_UnknownKeyspace(t *testing.T) {
	sm := NewScyllaManager(testConfig())
	_, err := sm.Session("nope")
	assert.Error(t, err)

	sm = NewScyllaManager(&config.Config{})
	_, err = sm.OrdersSession()
	assert.Error(t, err)
}
