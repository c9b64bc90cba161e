package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session store keys shared by the assessment, interview and resume flows.
const (
	SessionKeyCodingAssessment    = "codingAssessment"
	SessionKeyInterviewSessionID  = "interviewSessionId"
	SessionKeyInterviewAssessment = "interviewAssessment"
	SessionKeyResumeAnalysis      = "resumeAnalysis"
)

const maxSessionUpdateAttempts = 8

// ErrSessionConflict indicates concurrent writers kept invalidating an update.
var ErrSessionConflict = errors.New("session record changed concurrently")

// SessionUpdateFunc receives the current value and returns the value to store.
type SessionUpdateFunc func(current string, exists bool) (string, error)

// SessionStore persists per-user string values without expiry.
type SessionStore interface {
	Get(ctx context.Context, userID uint, key string) (string, bool, error)
	Set(ctx context.Context, userID uint, key, value string) error
	Remove(ctx context.Context, userID uint, keys ...string) error
	Update(ctx context.Context, userID uint, key string, fn SessionUpdateFunc) (string, error)
}

type redisSessionStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewSessionStore constructs a Redis backed session store. Each user owns one hash.
func NewSessionStore(client *redis.Client, prefix string, logger zerolog.Logger) SessionStore {
	if prefix == "" {
		prefix = "prep"
	}

	return &redisSessionStore{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

func (s *redisSessionStore) hashKey(userID uint) string {
	return s.prefix + ":session:" + strconv.FormatUint(uint64(userID), 10)
}

func (s *redisSessionStore) Get(ctx context.Context, userID uint, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.hashKey(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read session key %s: %w", key, err)
	}

	return value, true, nil
}

func (s *redisSessionStore) Set(ctx context.Context, userID uint, key, value string) error {
	if err := s.client.HSet(ctx, s.hashKey(userID), key, value).Err(); err != nil {
		return fmt.Errorf("write session key %s: %w", key, err)
	}
	return nil
}

func (s *redisSessionStore) Remove(ctx context.Context, userID uint, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.hashKey(userID), keys...).Err(); err != nil {
		return fmt.Errorf("remove session keys: %w", err)
	}
	return nil
}

// Update runs fn under WATCH so a concurrent writer forces a retry instead of a torn record.
func (s *redisSessionStore) Update(ctx context.Context, userID uint, key string, fn SessionUpdateFunc) (string, error) {
	hash := s.hashKey(userID)
	var stored string

	txn := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, hash, key).Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
			current = ""
		} else if err != nil {
			return err
		}

		next, err := fn(current, exists)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hash, key, next)
			return nil
		})
		if err != nil {
			return err
		}

		stored = next
		return nil
	}

	for attempt := 1; attempt <= maxSessionUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, hash)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Uint("user_id", userID).Str("key", key).Int("attempt", attempt).Msg("session update retried")
			continue
		}
		return "", err
	}

	return "", ErrSessionConflict
}
