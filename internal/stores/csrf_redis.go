package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const pairRecordVersion1 = 1

// RedisPairStore is the distributed PairStore.
type RedisPairStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisPairStore(redisClient redis.UniversalClient, prefix string) *RedisPairStore {
	if prefix == "" {
		prefix = "bcs"
	}
	return &RedisPairStore{redis: redisClient, prefix: prefix}
}

func (s *RedisPairStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisPairStore) Put(ctx context.Context, sessionID string, pair *CSRFPair, ttl time.Duration) error {
	encoded, err := encodeCSRFPair(pair)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPairBackend, err)
	}
	return nil
}

func (s *RedisPairStore) Get(ctx context.Context, sessionID string) (*CSRFPair, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPairNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPairBackend, err)
	}
	return decodeCSRFPair(data)
}

func (s *RedisPairStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPairBackend, err)
	}
	return n > 0, nil
}

func (s *RedisPairStore) Sweep(context.Context, time.Time) (int, error) {
	// Redis expires stale pairs through the key TTL set in Put.
	return 0, nil
}

func encodeCSRFPair(pair *CSRFPair) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(pairRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, pair.ExpiresAt); err != nil {
		return nil, err
	}
	if len(pair.Secret) > 65535 {
		return nil, errors.New("csrf secret length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(pair.Secret))); err != nil {
		return nil, err
	}
	buf.WriteString(pair.Secret)

	return buf.Bytes(), nil
}

func decodeCSRFPair(data []byte) (*CSRFPair, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != pairRecordVersion1 {
		return nil, errors.New("invalid csrf pair record version")
	}

	pair := &CSRFPair{}
	if err := binary.Read(reader, binary.BigEndian, &pair.ExpiresAt); err != nil {
		return nil, err
	}

	var size uint16
	if err := binary.Read(reader, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, err
	}
	pair.Secret = string(raw)

	return pair, nil
}
