package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSuccessTopic = "topic-success-process"
	DefaultFailureTopic = "topic-failure-process"
	DefaultKeyspace     = "keyspace"
)

type Config struct {
	Env            string
	LambdaName     string
	Brokers        []string
	SuccessTopic   string
	FailureTopic   string
	PostgresSecret string
	ScyllaSecret   string
	Keyspace       string
	LogLevel       string
	LogFormat      string
	PublishTimeout time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	env := getEnv("LAMBDA_ENV", "dev")

	return &Config{
		Env:          env,
		LambdaName:   getEnv("LAMBDA_NAME", "order-enricher"),
		Brokers:      strings.Split(getEnv("MSK_SERVERS", "localhost:9092"), ","),
		SuccessTopic: getEnv("TOPIC_SUCCESS", DefaultSuccessTopic),
		FailureTopic: getEnv("TOPIC_FAILURE", DefaultFailureTopic),
		PostgresSecret: getEnv("POSTGRES_SECRET_ID",
			fmt.Sprintf("aws-account-henrique/%s/postgres/database/postgres/username/postgres_user", env)),
		ScyllaSecret: getEnv("SCYLLA_SECRET_ID",
			fmt.Sprintf("aws-account-henrique/%s/scylla/database/keyspace/username/keyspace_user", env)),
		Keyspace:       getEnv("SCYLLA_KEYSPACE", DefaultKeyspace),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		LogFormat:      getEnv("LOG_FORMAT", "JSON"),
		PublishTimeout: time.Duration(getEnvInt("PUBLISH_TIMEOUT_SEC", 10)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}
