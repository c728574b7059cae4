package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// StoreCredentials is the JSON shape stored in Secrets Manager for both
// stores. Scylla secrets carry a comma-separated host list and no dbname
type StoreCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
}

// PostgresURL renders the credentials as a pgx connection string
func (c *StoreCredentials) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.DBName,
	)
}

// Hosts splits the comma-separated contact point list
func (c *StoreCredentials) Hosts() []string {
	return strings.Split(c.Host, ",")
}

// Manager fetches store credentials from AWS Secrets Manager
type Manager struct {
	client *secretsmanager.Client
}

func NewManager(ctx context.Context) (*Manager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Manager{client: secretsmanager.NewFromConfig(cfg)}, nil
}

// Lookup retrieves and decodes one secret by id
func (m *Manager) Lookup(ctx context.Context, secretID string) (*StoreCredentials, error) {
	out, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve secret %s: %w", secretID, err)
	}

	var creds StoreCredentials
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &creds); err != nil {
		return nil, fmt.Errorf("failed to decode secret %s: %w", secretID, err)
	}
	return &creds, nil
}
