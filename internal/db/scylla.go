package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gocql/gocql"
)

const scyllaPort = 9042

// NewScyllaSession builds the process-scoped session for the history
// keyspace. Token-aware routing over round-robin, protocol 4, matching the
// cluster's deployment
func NewScyllaSession(hosts []string, username, password, keyspace string, logger *slog.Logger) (*gocql.Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Port = scyllaPort
	cluster.Keyspace = keyspace
	cluster.ProtoVersion = 4
	cluster.Timeout = 10 * time.Second
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: username,
		Password: password,
	}
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open scylla session: %w", err)
	}

	logger.Info("Connected to Scylla", "hosts", hosts, "keyspace", keyspace)
	return session, nil
}
