package store

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint"`

	// 集群节点的 host:port 地址列表
	Endpoints []string `cfg:"endpoints"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db" def:"0"`

	// RESP 协议版本。搜索应答按 RESP2 的扁平数组解析，默认为 2
	Protocol int `cfg:"protocol" def:"2" validate:"omitempty,oneof=2 3"`

	// 放弃前的最大重试次数，-1 禁用重试
	MaxRetries int `cfg:"maxRetries" def:"3"`

	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`

	// 为 0 时使用 go-redis 的默认值（每个 CPU 10 个连接）
	PoolSize     int `cfg:"poolSize"`
	MinIdleConns int `cfg:"minIdleConns"`

	ConnMaxIdleTime time.Duration `cfg:"connMaxIdleTime" def:"30m"`
}

// RedisStore 基于 Redis + RediSearch 的 Store
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStoreWithOptions(options *RedisStoreOptions) (*RedisStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	protocol := options.Protocol
	if protocol == 0 {
		protocol = 2
	}

	var client redis.UniversalClient
	if options.Endpoint != "" {
		client = redis.NewClient(&redis.Options{
			Addr:            options.Endpoint,
			Username:        options.Username,
			Password:        options.Password,
			DB:              options.DB,
			Protocol:        protocol,
			MaxRetries:      options.MaxRetries,
			DialTimeout:     options.DialTimeout,
			ReadTimeout:     options.ReadTimeout,
			WriteTimeout:    options.WriteTimeout,
			PoolSize:        options.PoolSize,
			MinIdleConns:    options.MinIdleConns,
			ConnMaxIdleTime: options.ConnMaxIdleTime,
		})
	} else if len(options.Endpoints) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           options.Endpoints,
			Username:        options.Username,
			Password:        options.Password,
			Protocol:        protocol,
			MaxRetries:      options.MaxRetries,
			DialTimeout:     options.DialTimeout,
			ReadTimeout:     options.ReadTimeout,
			WriteTimeout:    options.WriteTimeout,
			PoolSize:        options.PoolSize,
			MinIdleConns:    options.MinIdleConns,
			ConnMaxIdleTime: options.ConnMaxIdleTime,
		})
	} else {
		return nil, errors.New("Endpoint or Endpoints must be set")
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis.Ping failed")
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient 使用调用方已有的客户端，Close 时会关闭该客户端
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(fields)*2)
	for _, name := range names {
		args = append(args, name, fields[name])
	}
	return errors.Wrapf(s.client.HSet(ctx, key, args...).Err(), "redis.HSet %s failed", key)
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis.HGetAll %s failed", key)
	}
	return fields, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.Del(ctx, key).Err(), "redis.Del %s failed", key)
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return errors.Wrapf(s.client.SAdd(ctx, key, toArgs(members)...).Err(), "redis.SAdd %s failed", key)
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return errors.Wrapf(s.client.SRem(ctx, key, toArgs(members)...).Err(), "redis.SRem %s failed", key)
}

func (s *RedisStore) SScan(ctx context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	keys, next, err := s.client.SScan(ctx, key, cursor, "", count).Result()
	if err != nil {
		return nil, 0, errors.Wrapf(err, "redis.SScan %s failed", key)
	}
	return keys, next, nil
}

func (s *RedisStore) DropIndex(ctx context.Context, index string) error {
	return errors.Wrapf(s.client.Do(ctx, "FT.DROPINDEX", index).Err(), "FT.DROPINDEX %s failed", index)
}

func (s *RedisStore) CreateIndex(ctx context.Context, def *IndexDefinition) error {
	if def == nil || def.Name == "" {
		return errors.New("index definition requires a name")
	}
	if len(def.Fields) == 0 {
		return errors.Errorf("index %s has no fields", def.Name)
	}

	args := []any{"FT.CREATE", def.Name, "ON", "HASH"}
	if len(def.Prefixes) > 0 {
		args = append(args, "PREFIX", len(def.Prefixes))
		args = append(args, toArgs(def.Prefixes)...)
	}
	args = append(args, "SCHEMA")
	for _, field := range def.Fields {
		args = append(args, field.Field, string(field.Type))
		if field.Sortable {
			args = append(args, "SORTABLE")
		}
	}
	return errors.Wrapf(s.client.Do(ctx, args...).Err(), "FT.CREATE %s failed", def.Name)
}

func (s *RedisStore) Search(ctx context.Context, index string, query string, options *SearchOptions) ([]any, error) {
	args := []any{"FT.SEARCH", index, query}
	if options != nil {
		if options.SortBy != "" {
			order := "ASC"
			if options.SortDesc {
				order = "DESC"
			}
			args = append(args, "SORTBY", options.SortBy, order)
		}
		args = append(args, "LIMIT", strconv.Itoa(options.Offset), strconv.Itoa(options.Limit))
	}

	reply, err := s.client.Do(ctx, args...).Slice()
	if err != nil {
		return nil, errors.Wrapf(err, "FT.SEARCH %s failed", index)
	}
	return reply, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
