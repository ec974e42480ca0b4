package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/padelpoint/access-service/internal/domain"
	"github.com/padelpoint/access-service/pkg/logger"
)

const (
	// Префиксы ключей для различных типов данных
	memberKeyPrefix           = "member:"
	memberIdentifierKeyPrefix = "member_identifier:"

	// TTL для кэша
	defaultCacheTTL = 15 * time.Minute
)

// RedisCacheRepository реализует кеширование для репозиториев с использованием Redis
type RedisCacheRepository struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, log *logger.Logger) (*RedisCacheRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return &RedisCacheRepository{
		client: client,
		log:    log,
	}, nil
}

// CacheMember кеширует участника по ID и по идентификатору обращения
func (r *RedisCacheRepository) CacheMember(ctx context.Context, member *domain.Member) error {
	data, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("failed to marshal member: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, memberKeyPrefix+member.ID.String(), data, defaultCacheTTL)
	if member.Phone != "" {
		pipe.Set(ctx, memberIdentifierKeyPrefix+member.Phone, data, defaultCacheTTL)
	}
	if member.Code != "" {
		pipe.Set(ctx, memberIdentifierKeyPrefix+member.Code, data, defaultCacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache member: %w", err)
	}

	return nil
}

// GetCachedMemberByIdentifier возвращает участника из кеша по идентификатору
// обращения (телефон или код); nil без ошибки при промахе
func (r *RedisCacheRepository) GetCachedMemberByIdentifier(ctx context.Context, identifier string) (*domain.Member, error) {
	data, err := r.client.Get(ctx, memberIdentifierKeyPrefix+identifier).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member from cache: %w", err)
	}

	var member domain.Member
	if err := json.Unmarshal(data, &member); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached member: %w", err)
	}

	return &member, nil
}

// InvalidateMember удаляет участника из кеша по всем его ключам
func (r *RedisCacheRepository) InvalidateMember(ctx context.Context, member *domain.Member) error {
	keys := []string{memberKeyPrefix + member.ID.String()}
	if member.Phone != "" {
		keys = append(keys, memberIdentifierKeyPrefix+member.Phone)
	}
	if member.Code != "" {
		keys = append(keys, memberIdentifierKeyPrefix+member.Code)
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate member cache: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis
func (r *RedisCacheRepository) Close() error {
	return r.client.Close()
}
