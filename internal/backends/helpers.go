// Package backends constructs the durable tier from environment variables.
// The durable store is a capability the cache optionally holds; selecting
// "none" hands the client no store at all, which skips the fallback and
// persist steps entirely.
package backends

import (
	"confetch/internal/backends/bolt"
	"confetch/internal/backends/ddb"
	"confetch/internal/backends/file"
	"confetch/internal/ports"
	"confetch/internal/types"
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	redisbackend "confetch/internal/backends/redis"
)

const (
	CacheBackendEnvKey = "CACHE_BACKEND"
	BackendFile        = "file"
	BackendBolt        = "bolt"
	BackendRedis       = "redis"
	BackendDDB         = "ddb"
	BackendNone        = "none"

	DDBEndpointKey = "DDB_ENDPOINT"
	DDBTableKey    = "DDB_TABLE"

	RedisHost  = "REDIS_HOST"
	RedisPort  = "REDIS_PORT"
	RedisUser  = "REDIS_USER"
	RedisPass  = "REDIS_PASS"
	RedisTLS   = "REDIS_SSL"
	RedisDBNum = "REDIS_DB_NUM"
)

// DurableBackendFromEnv constructs a DurableStore based on environment
// variables. Supported backends are "file" (default), "bolt", "redis", "ddb"
// and "none" (nil store, memory tier only). It first checks CACHE_BACKEND to
// determine which backend to use; depending on the backend, it reads
// additional env vars.
func DurableBackendFromEnv(cfg types.ClientConfig) (store ports.DurableStore, err error) {
	backend := os.Getenv(CacheBackendEnvKey)
	switch backend {
	case BackendNone:
		return nil, nil

	case BackendBolt:
		return bolt.New(filepath.Join(cfg.CachePath(), "records.db"))

	case BackendRedis:
		var redisClient *redis.Client
		redisClient, err = redisClientFromEnv()
		if err != nil {
			return nil, err
		}
		store = redisbackend.New(redisClient, cfg.AppID)

	case BackendDDB:
		var ddbClient *dynamodb.Client
		ddbClient, err = ddbClientFromEnv()
		if err != nil {
			return nil, err
		}
		table := getenv(DDBTableKey, "confetch_records")
		store = ddb.New(table, ddbClient, cfg.AppID)

	case BackendFile:
		fallthrough
	case "":
		store = file.New(cfg.CachePath())

	default:
		return nil, types.Err(types.ErrInvalidBackend, nil, "unknown cache backend %q", backend)
	}
	return
}

// ddbClientFromEnv creates a DynamoDB client from environment variables, if any.
func ddbClientFromEnv() (*dynamodb.Client, error) {
	var ddbEndpoint *string
	de := os.Getenv(DDBEndpointKey)
	if de != "" {
		ddbEndpoint = aws.String(de)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, err
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ddbEndpoint != nil {
			// This is used for testing only locally
			o.BaseEndpoint = ddbEndpoint
			o.Region = getenv("AWS_REGION", "us-east-1")
			credProvider := credentials.NewStaticCredentialsProvider(
				getenv("AWS_ACCESS_KEY_ID", "x"),
				getenv("AWS_SECRET_ACCESS_KEY", "x"),
				"",
			)
			o.Credentials = credProvider
		}
	})
	return ddbClient, nil
}

// redisClientFromEnv creates a Redis client from environment variables, if any.
func redisClientFromEnv() (*redis.Client, error) {
	host := getenv(RedisHost, "localhost")
	port := getenv(RedisPort, "6379")
	user := os.Getenv(RedisUser)
	pass := os.Getenv(RedisPass)
	tlsEnabled := parseBoolean(getenv(RedisTLS, "false"))
	dbNumStr := getenv(RedisDBNum, "0")
	dbNum, err := strconv.Atoi(dbNumStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis DB number: %w", err)
	}

	var tlsConfig *tls.Config
	if tlsEnabled {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	redisConfig := redis.Options{
		Addr:      fmt.Sprintf("%s:%s", host, port),
		Username:  user,
		Password:  pass,
		DB:        dbNum,
		TLSConfig: tlsConfig,
	}
	redisClient := redis.NewClient(&redisConfig)
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return redisClient, nil
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func parseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
