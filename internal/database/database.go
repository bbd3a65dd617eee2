package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/config"
)

type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// ScyllaManager holds one session per keyspace, each opened with the
// keyspace's own role.
type ScyllaManager struct {
	sessions map[string]*gocql.Session
	configs  map[string]ScyllaKeyspaceConfig
	products string
	orders   string
	mu       sync.Mutex
}

// Connections are the backing services of the server.
type Connections struct {
	Scylla *ScyllaManager
	Redis  *redis.Client
	// MinIO is nil when object storage is not configured.
	MinIO *minio.Client
}

func Connect(ctx context.Context, cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	scylla := NewScyllaManager(cfg)
	if err := scylla.Open(); err != nil {
		return nil, err
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		scylla.Close()
		return nil, err
	}

	store, err := connectMinIO(ctx, cfg)
	if err != nil {
		scylla.Close()
		rdb.Close()
		return nil, err
	}

	log.Println("✅ All backing services connected")
	return &Connections{Scylla: scylla, Redis: rdb, MinIO: store}, nil
}

func (c *Connections) Close() {
	c.Scylla.Close()
	if err := c.Redis.Close(); err != nil {
		log.Printf("⚠️ Redis close: %v", err)
	}
}

// =============================================
// SCYLLA DB
// =============================================

func NewScyllaManager(cfg *config.Config) *ScyllaManager {
	return &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  keyspaceConfigs(cfg),
		products: cfg.ScyllaProducts.Keyspace,
		orders:   cfg.ScyllaOrders.Keyspace,
	}
}

// Open creates the session of every configured keyspace. Tables are
// created beforehand with scripts/scylladb_init.cql.
func (sm *ScyllaManager) Open() error {
	for keyspace := range sm.configs {
		if _, err := sm.Session(keyspace); err != nil {
			return fmt.Errorf("init keyspace %s: %w", keyspace, err)
		}
	}
	return nil
}

func keyspaceConfigs(cfg *config.Config) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)
	for _, ks := range []config.ScyllaKeyspace{cfg.ScyllaProducts, cfg.ScyllaOrders} {
		if ks.Keyspace == "" {
			continue
		}
		configs[ks.Keyspace] = ScyllaKeyspaceConfig{
			Hosts:       cfg.ScyllaHosts,
			Keyspace:    ks.Keyspace,
			Username:    ks.Role,
			Password:    ks.Password,
			SSLEnabled:  cfg.ScyllaSSLEnabled,
			CACertPath:  cfg.ScyllaCAPath,
			Timeout:     5 * time.Second,
			NumConns:    20,
			Consistency: gocql.Quorum,
		}
	}
	return configs
}

func createScyllaCluster(cfg ScyllaKeyspaceConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = cfg.Consistency
	// Lightweight transactions on order status.
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.SSLEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 cfg.CACertPath,
			EnableHostVerification: true,
		}
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// Session returns the session of keyspace, reopening it if it went stale.
func (sm *ScyllaManager) Session(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cfg, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace %q not configured", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists {
		if !session.Closed() {
			return session, nil
		}
		delete(sm.sessions, keyspace)
	}

	session, err := createScyllaCluster(cfg).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("create session for %s: %w", keyspace, err)
	}
	sm.sessions[keyspace] = session
	log.Printf("✅ ScyllaDB session for keyspace '%s' (role: %s)", keyspace, cfg.Username)
	return session, nil
}

func (sm *ScyllaManager) ProductsSession() (*gocql.Session, error) {
	if sm.products == "" {
		return nil, errors.New("SCYLLA_KS_PRODUCTS_KEYSPACE not configured")
	}
	return sm.Session(sm.products)
}

func (sm *ScyllaManager) OrdersSession() (*gocql.Session, error) {
	if sm.orders == "" {
		return nil, errors.New("SCYLLA_KS_ORDERS_KEYSPACE not configured")
	}
	return sm.Session(sm.orders)
}

// Ping runs a trivial query on every open session.
func (sm *ScyllaManager) Ping(ctx context.Context) error {
	sm.mu.Lock()
	sessions := make(map[string]*gocql.Session, len(sm.sessions))
	for ks, s := range sm.sessions {
		sessions[ks] = s
	}
	sm.mu.Unlock()

	for ks, s := range sessions {
		if err := s.Query("SELECT now() FROM system.local").WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("keyspace %s: %w", ks, err)
		}
	}
	return nil
}

func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		log.Printf("🔌 ScyllaDB session closed for keyspace '%s'", keyspace)
	}
	sm.sessions = make(map[string]*gocql.Session)
}

// =============================================
// REDIS
// =============================================

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Println("✅ Connected to Redis")
	return client, nil
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	if !cfg.ImagesEnabled() {
		log.Println("⚠️ MinIO not configured, product images are sent as-is")
		return nil, nil
	}

	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket %q does not exist", cfg.MinIOBucket)
	}
	log.Println("✅ Connected to MinIO:", cfg.MinIOEndpoint)
	return client, nil
}
