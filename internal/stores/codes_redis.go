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

const codeRecordVersion1 = 1

// RedisCodeStore is the distributed CodeStore. Single-use atomicity comes
// from GETDEL; expiry sweeping is delegated to the key TTL.
type RedisCodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisCodeStore(redisClient redis.UniversalClient, prefix string) *RedisCodeStore {
	if prefix == "" {
		prefix = "bac"
	}
	return &RedisCodeStore{redis: redisClient, prefix: prefix}
}

func (s *RedisCodeStore) key(code string) string {
	return s.prefix + ":" + code
}

func (s *RedisCodeStore) Put(ctx context.Context, code string, record *AuthorizationCode, ttl time.Duration) error {
	encoded, err := encodeAuthorizationCode(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(code), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return nil
}

func (s *RedisCodeStore) Take(ctx context.Context, code string) (*AuthorizationCode, error) {
	data, err := s.redis.GetDel(ctx, s.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return decodeAuthorizationCode(data)
}

func (s *RedisCodeStore) Sweep(context.Context, time.Time) (int, error) {
	// Redis expires stale codes through the key TTL set in Put.
	return 0, nil
}

func encodeAuthorizationCode(record *AuthorizationCode) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(codeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	fields := []string{
		record.UserID,
		record.Username,
		record.Email,
		record.Role,
		record.CodeChallenge,
		record.ChallengeMethod,
		record.State,
		record.RedirectURI,
	}
	for _, field := range fields {
		if len(field) > 65535 {
			return nil, errors.New("authorization code field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeAuthorizationCode(data []byte) (*AuthorizationCode, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersion1 {
		return nil, errors.New("invalid authorization code record version")
	}

	record := &AuthorizationCode{}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	fields := []*string{
		&record.UserID,
		&record.Username,
		&record.Email,
		&record.Role,
		&record.CodeChallenge,
		&record.ChallengeMethod,
		&record.State,
		&record.RedirectURI,
	}
	for _, field := range fields {
		var size uint16
		if err := binary.Read(reader, binary.BigEndian, &size); err != nil {
			return nil, err
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
