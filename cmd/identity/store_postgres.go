package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements account persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Uniqueness is enforced by the uq_accounts_email_norm index; duplicate
//   inserts surface as ConflictError rather than read-then-write races.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string

	dummyHash string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the account store (default "carelink").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "carelink",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	st.dummyHash = dummyCredentialHash()
	return st, nil
}

// FindByEmail returns the account bound to email (case-insensitive).
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	const op = "identity.FindByEmail"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	norm := NormalizeEmail(email)
	if norm == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing email"}
	}

	accounts := pgIdent(s.schema, "accounts")

	var out Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, email_norm, display_name, avatar_url, origin, created_at
		   FROM `+accounts+`
		  WHERE email_norm = $1`,
		norm,
	).Scan(&out.ID, &out.Email, &out.EmailNorm, &out.DisplayName, &out.AvatarURL, &out.Origin, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, err
	}
	return out, nil
}

// CreatePasswordAccount creates a new account and its credential transactionally.
func (s *PostgresStore) CreatePasswordAccount(ctx context.Context, in CreatePasswordAccountInput) (Account, error) {
	const op = "identity.CreatePasswordAccount"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || name == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and display name are required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	norm := NormalizeEmail(email)

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}

	id, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	accounts := pgIdent(s.schema, "accounts")
	creds := pgIdent(s.schema, "account_credentials")

	_, err = tx.Exec(ctx,
		`INSERT INTO `+accounts+` (
		     id, email, email_norm, display_name, avatar_url, origin, created_at
		   ) VALUES ($1, $2, $3, $4, NULL, $5, $6)`,
		id, email, norm, name, OriginPassword, now,
	)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return Account{}, ConflictError{Op: op, Field: "email"}
		}
		return Account{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO `+creds+` (account_id, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)`,
		id, pwHash, now,
	)
	if err != nil {
		// FK failure here indicates schema inconsistency, not a caller error.
		return Account{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, err
	}

	return Account{
		ID:          id,
		Email:       email,
		EmailNorm:   norm,
		DisplayName: name,
		Origin:      OriginPassword,
		CreatedAt:   now,
	}, nil
}

// VerifyPassword checks email+password against the credential row.
// Unknown email and federated accounts fail closed after a dummy verify.
func (s *PostgresStore) VerifyPassword(ctx context.Context, email, password string) (Account, bool, error) {
	const op = "identity.VerifyPassword"

	if s == nil || s.pool == nil {
		return Account{}, false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, false, err
	}

	norm := NormalizeEmail(email)
	if norm == "" {
		return Account{}, false, nil
	}

	accounts := pgIdent(s.schema, "accounts")
	creds := pgIdent(s.schema, "account_credentials")

	var (
		out    Account
		pwHash *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT a.id, a.email, a.email_norm, a.display_name, a.avatar_url, a.origin, a.created_at,
		        c.password_hash
		   FROM `+accounts+` a
		   LEFT JOIN `+creds+` c ON c.account_id = a.id
		  WHERE a.email_norm = $1`,
		norm,
	).Scan(&out.ID, &out.Email, &out.EmailNorm, &out.DisplayName, &out.AvatarURL, &out.Origin, &out.CreatedAt, &pwHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if s.dummyHash != "" {
				_, _ = CheckPassword(password, s.dummyHash)
			}
			return Account{}, false, nil
		}
		return Account{}, false, err
	}

	if pwHash == nil || *pwHash == "" {
		if s.dummyHash != "" {
			_, _ = CheckPassword(password, s.dummyHash)
		}
		return Account{}, false, nil
	}

	ok, err := CheckPassword(password, *pwHash)
	if err != nil {
		return Account{}, false, err
	}
	if !ok {
		return Account{}, false, nil
	}
	return out, true, nil
}

// FindOrCreateFederatedAccount returns the account for in.Email, creating a
// federated-origin account when none exists.
//
// Atomicity: the INSERT uses ON CONFLICT (email_norm) DO NOTHING, so a race
// between two first logins for the same email resolves to a single row; the
// loser falls through to the SELECT of the winner's row.
func (s *PostgresStore) FindOrCreateFederatedAccount(ctx context.Context, in FederatedAccountInput) (Account, error) {
	const op = "identity.FindOrCreateFederatedAccount"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || name == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and display name are required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	norm := NormalizeEmail(email)
	avatar := trimPtr(in.AvatarURL)

	id, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	accounts := pgIdent(s.schema, "accounts")

	var out Account
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+accounts+` (
		     id, email, email_norm, display_name, avatar_url, origin, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7)
		   ON CONFLICT (email_norm) DO NOTHING
		   RETURNING id, email, email_norm, display_name, avatar_url, origin, created_at`,
		id, email, norm, name, avatar, OriginFederated, now,
	).Scan(&out.ID, &out.Email, &out.EmailNorm, &out.DisplayName, &out.AvatarURL, &out.Origin, &out.CreatedAt)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Account{}, err
	}

	// Account already exists: return it, refreshing the avatar if the
	// provider supplied a different one.
	if avatar != nil {
		err = s.pool.QueryRow(ctx,
			`UPDATE `+accounts+`
			    SET avatar_url = $1
			  WHERE email_norm = $2
			    AND (avatar_url IS DISTINCT FROM $1)
			  RETURNING id, email, email_norm, display_name, avatar_url, origin, created_at`,
			avatar, norm,
		).Scan(&out.ID, &out.Email, &out.EmailNorm, &out.DisplayName, &out.AvatarURL, &out.Origin, &out.CreatedAt)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Account{}, err
		}
	}

	return s.FindByEmail(ctx, email)
}

// ---- helpers ----

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
