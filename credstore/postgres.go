package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	goBroker "github.com/MrEthical07/goBroker"
)

// Postgres backs the CredentialProvider interface with a credentials
// table. All statements are parameterized; see migrations/ for the schema.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pool against dsn (pgx driver) and verifies
// connectivity. Call [Migrate] before first use on a fresh database.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("credstore: open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("credstore: ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing pool. The caller keeps ownership of
// the pool lifecycle; Close becomes a no-op path for them to manage.
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the underlying pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

const credentialColumns = `user_id, username, email, password_hash, status,
	totp_secret, two_factor_enabled, totp_last_counter, token_version,
	role, permissions, session_ttl_seconds, security_answer_hashes`

func (p *Postgres) GetByIdentifier(ctx context.Context, identifier string) (*goBroker.Credential, error) {
	identifier = normalizeIdentifier(identifier)
	row := p.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+`
		 FROM credentials
		 WHERE username = $1 OR email = $1`, identifier)
	return scanCredential(row)
}

func (p *Postgres) GetByID(ctx context.Context, userID string) (*goBroker.Credential, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+`
		 FROM credentials
		 WHERE user_id = $1`, userID)
	return scanCredential(row)
}

func (p *Postgres) TokenVersion(ctx context.Context, userID string) (uint32, error) {
	var version uint32
	err := p.db.QueryRowContext(ctx,
		`SELECT token_version FROM credentials WHERE user_id = $1`, userID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, goBroker.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credstore: token version: %w", err)
	}
	return version, nil
}

func (p *Postgres) BumpTokenVersion(ctx context.Context, userID string) (uint32, error) {
	var version uint32
	err := p.db.QueryRowContext(ctx,
		`UPDATE credentials
		 SET token_version = token_version + 1
		 WHERE user_id = $1
		 RETURNING token_version`, userID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, goBroker.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credstore: bump token version: %w", err)
	}
	return version, nil
}

func (p *Postgres) UpdatePassword(ctx context.Context, userID string, newHash string) (uint32, error) {
	// Single statement so the hash swap and the version bump cannot be
	// observed separately.
	var version uint32
	err := p.db.QueryRowContext(ctx,
		`UPDATE credentials
		 SET password_hash = $2, token_version = token_version + 1
		 WHERE user_id = $1
		 RETURNING token_version`, userID, newHash,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, goBroker.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credstore: update password: %w", err)
	}
	return version, nil
}

func (p *Postgres) UpdateStatus(ctx context.Context, userID string, status goBroker.AccountStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE credentials SET status = $2 WHERE user_id = $1`,
		userID, status.String())
	if err != nil {
		return fmt.Errorf("credstore: update status: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE credentials SET last_login_at = $2 WHERE user_id = $1`,
		userID, at.UTC())
	if err != nil {
		return fmt.Errorf("credstore: update last login: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) SetTOTP(ctx context.Context, userID string, secret []byte, enabled bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE credentials
		 SET totp_secret = $2,
		     two_factor_enabled = $3,
		     totp_last_counter = CASE WHEN $3 THEN totp_last_counter ELSE 0 END
		 WHERE user_id = $1`,
		userID, secret, enabled)
	if err != nil {
		return fmt.Errorf("credstore: set totp: %w", err)
	}
	return requireRow(res)
}

func (p *Postgres) UpdateTOTPLastCounter(ctx context.Context, userID string, counter int64) error {
	// GREATEST keeps concurrent verifications from moving the replay
	// watermark backwards.
	res, err := p.db.ExecContext(ctx,
		`UPDATE credentials
		 SET totp_last_counter = GREATEST(totp_last_counter, $2)
		 WHERE user_id = $1`,
		userID, counter)
	if err != nil {
		return fmt.Errorf("credstore: update totp counter: %w", err)
	}
	return requireRow(res)
}

// Insert creates a credential row. Intended for provisioning tooling and
// tests; the broker itself never creates accounts.
func (p *Postgres) Insert(ctx context.Context, cred goBroker.Credential) error {
	if cred.UserID == "" {
		cred.UserID = uuid.NewString()
	}
	perms, err := json.Marshal(cred.Permissions)
	if err != nil {
		return fmt.Errorf("credstore: encode permissions: %w", err)
	}
	answers, err := json.Marshal(cred.SecurityAnswerHashes)
	if err != nil {
		return fmt.Errorf("credstore: encode answers: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO credentials (`+credentialColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		cred.UserID, cred.Username, cred.Email, cred.PasswordHash,
		cred.Status.String(), cred.TOTPSecret, cred.TwoFactorEnabled,
		cred.TOTPLastCounter, cred.TokenVersion, cred.Role, perms,
		int64(cred.SessionTTL/time.Second), answers)
	if err != nil {
		return fmt.Errorf("credstore: insert credential: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*goBroker.Credential, error) {
	var (
		cred       goBroker.Credential
		rawStatus  string
		perms      []byte
		answers    []byte
		ttlSeconds int64
	)
	err := row.Scan(
		&cred.UserID, &cred.Username, &cred.Email, &cred.PasswordHash,
		&rawStatus, &cred.TOTPSecret, &cred.TwoFactorEnabled,
		&cred.TOTPLastCounter, &cred.TokenVersion, &cred.Role,
		&perms, &ttlSeconds, &answers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goBroker.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: scan credential: %w", err)
	}

	cred.Status, err = goBroker.ParseAccountStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("credstore: %w", err)
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &cred.Permissions); err != nil {
			return nil, fmt.Errorf("credstore: decode permissions: %w", err)
		}
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &cred.SecurityAnswerHashes); err != nil {
			return nil, fmt.Errorf("credstore: decode answers: %w", err)
		}
	}
	cred.SessionTTL = time.Duration(ttlSeconds) * time.Second
	return &cred, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credstore: rows affected: %w", err)
	}
	if n == 0 {
		return goBroker.ErrUserNotFound
	}
	return nil
}
