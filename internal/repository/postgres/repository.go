package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// =============================================================================
// Users
// =============================================================================

type userRow struct {
	ID           string       `db:"id"`
	GoogleID     string       `db:"google_id"`
	Email        string       `db:"email"`
	Name         string       `db:"name"`
	AccessToken  string       `db:"access_token"`
	RefreshToken string       `db:"refresh_token"`
	TokenExpiry  sql.NullTime `db:"token_expiry"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (r *userRow) toModel() *model.User {
	u := &model.User{
		ID:           r.ID,
		GoogleID:     r.GoogleID,
		Email:        r.Email,
		Name:         r.Name,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.TokenExpiry.Valid {
		u.TokenExpiry = r.TokenExpiry.Time
	}
	return u
}

const userColumns = `id, google_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at`

type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()`
	var expiry *time.Time
	if !user.TokenExpiry.IsZero() {
		expiry = &user.TokenExpiry
	}
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, nullTime(expiry),
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *PostgresUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET email=$1, name=$2, access_token=$3,
		refresh_token=$4, token_expiry=$5, updated_at=NOW() WHERE id=$6`
	var expiry *time.Time
	if !user.TokenExpiry.IsZero() {
		expiry = &user.TokenExpiry
	}
	res, err := r.db.ExecContext(ctx, query,
		user.Email, user.Name, user.AccessToken, user.RefreshToken, nullTime(expiry), user.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// =============================================================================
// Workspaces
// =============================================================================

type workspaceRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	Name      string    `db:"name"`
	Color     string    `db:"color"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *workspaceRow) toModel() *model.Workspace {
	return &model.Workspace{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Color:     model.Color(r.Color),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const workspaceColumns = `id, owner_id, name, color, created_at, updated_at`

type PostgresWorkspaceRepository struct {
	db *sqlx.DB
}

func NewPostgresWorkspaceRepository(db *sqlx.DB) *PostgresWorkspaceRepository {
	return &PostgresWorkspaceRepository{db: db}
}

func (r *PostgresWorkspaceRepository) Create(ctx context.Context, ws *model.Workspace) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (`+workspaceColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		ws.ID, ws.OwnerID, ws.Name, string(ws.Color), ws.CreatedAt, ws.UpdatedAt)
	return err
}

func (r *PostgresWorkspaceRepository) FindByID(ctx context.Context, id string) (*model.Workspace, error) {
	var row workspaceRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *PostgresWorkspaceRepository) FindByOwnerID(ctx context.Context, ownerID string) ([]*model.Workspace, error) {
	var rows []workspaceRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+workspaceColumns+` FROM workspaces WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID); err != nil {
		return nil, err
	}
	out := make([]*model.Workspace, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (r *PostgresWorkspaceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	return err
}

// =============================================================================
// Sender contexts
// =============================================================================

type senderContextRow struct {
	ID              string         `db:"id"`
	WorkspaceID     string         `db:"workspace_id"`
	Intent          string         `db:"intent"`
	Data            []byte         `db:"data"`
	Summary         string         `db:"summary"`
	AdditionalNotes sql.NullString `db:"additional_notes"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *senderContextRow) toModel() (*model.SenderContext, error) {
	fields, err := model.DecodeIntentFields(model.Intent(r.Intent), r.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sender context %s: %w", r.ID, err)
	}
	return &model.SenderContext{
		ID:              r.ID,
		WorkspaceID:     r.WorkspaceID,
		Fields:          fields,
		Summary:         r.Summary,
		AdditionalNotes: r.AdditionalNotes.String,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

const senderContextColumns = `id, workspace_id, intent, data, summary, additional_notes, created_at, updated_at`

type PostgresSenderContextRepository struct {
	db *sqlx.DB
}

func NewPostgresSenderContextRepository(db *sqlx.DB) *PostgresSenderContextRepository {
	return &PostgresSenderContextRepository{db: db}
}

// Upsert relies on the unique workspace_id constraint so concurrent saves
// collapse into one row.
func (r *PostgresSenderContextRepository) Upsert(ctx context.Context, sc *model.SenderContext) (*model.SenderContext, error) {
	data, err := json.Marshal(sc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sender context: %w", err)
	}

	query := `
		INSERT INTO sender_contexts (` + senderContextColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workspace_id) DO UPDATE SET
			intent = EXCLUDED.intent,
			data = EXCLUDED.data,
			summary = EXCLUDED.summary,
			additional_notes = EXCLUDED.additional_notes,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + senderContextColumns

	var row senderContextRow
	err = r.db.GetContext(ctx, &row, query,
		sc.ID, sc.WorkspaceID, string(sc.Intent()), string(data), sc.Summary,
		nullString(sc.AdditionalNotes), sc.CreatedAt, sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

func (r *PostgresSenderContextRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) (*model.SenderContext, error) {
	var row senderContextRow
	if err := r.db.GetContext(ctx, &row,
		`SELECT `+senderContextColumns+` FROM sender_contexts WHERE workspace_id = $1`, workspaceID); err != nil {
		return nil, notFound(err)
	}
	return row.toModel()
}

// =============================================================================
// Recipients
// =============================================================================

type recipientRow struct {
	ID              string         `db:"id"`
	WorkspaceID     string         `db:"workspace_id"`
	Handle          string         `db:"handle"`
	Email           sql.NullString `db:"email"`
	Name            sql.NullString `db:"name"`
	ProfileSnapshot sql.NullString `db:"profile_snapshot"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *recipientRow) toModel() *model.Recipient {
	rc := &model.Recipient{
		ID:          r.ID,
		WorkspaceID: r.WorkspaceID,
		Handle:      r.Handle,
		Email:       r.Email.String,
		Name:        r.Name.String,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ProfileSnapshot.Valid {
		s := r.ProfileSnapshot.String
		rc.ProfileSnapshot = &s
	}
	return rc
}

const recipientColumns = `id, workspace_id, handle, email, name, profile_snapshot, created_at, updated_at`

type PostgresRecipientRepository struct {
	db *sqlx.DB
}

func NewPostgresRecipientRepository(db *sqlx.DB) *PostgresRecipientRepository {
	return &PostgresRecipientRepository{db: db}
}

func (r *PostgresRecipientRepository) Create(ctx context.Context, rc *model.Recipient) error {
	snapshot := sql.NullString{}
	if rc.ProfileSnapshot != nil {
		snapshot = sql.NullString{String: *rc.ProfileSnapshot, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recipients (`+recipientColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rc.ID, rc.WorkspaceID, rc.Handle, nullString(rc.Email), nullString(rc.Name),
		snapshot, rc.CreatedAt, rc.UpdatedAt)
	return err
}

func (r *PostgresRecipientRepository) FindByID(ctx context.Context, id string) (*model.Recipient, error) {
	var row recipientRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+recipientColumns+` FROM recipients WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *PostgresRecipientRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Recipient, error) {
	var rows []recipientRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+recipientColumns+` FROM recipients WHERE workspace_id = $1 ORDER BY created_at DESC`, workspaceID); err != nil {
		return nil, err
	}
	out := make([]*model.Recipient, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (r *PostgresRecipientRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recipients WHERE id = $1`, id)
	return err
}

// =============================================================================
// Emails
// =============================================================================

type emailRow struct {
	ID              string       `db:"id"`
	WorkspaceID     string       `db:"workspace_id"`
	RecipientID     string       `db:"recipient_id"`
	Subject         string       `db:"subject"`
	Body            string       `db:"body"`
	Status          string       `db:"status"`
	Personalization int          `db:"personalization"`
	Formality       int          `db:"formality"`
	Persuasiveness  int          `db:"persuasiveness"`
	SubjectFallback bool         `db:"subject_fallback"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
	SentAt          sql.NullTime `db:"sent_at"`
	OpenedAt        sql.NullTime `db:"opened_at"`
	RepliedAt       sql.NullTime `db:"replied_at"`
}

func (r *emailRow) toModel() *model.Email {
	return &model.Email{
		ID:              r.ID,
		WorkspaceID:     r.WorkspaceID,
		RecipientID:     r.RecipientID,
		Subject:         r.Subject,
		Body:            r.Body,
		Status:          model.EmailStatus(r.Status),
		Tone:            model.NewTone(r.Personalization, r.Formality, r.Persuasiveness),
		SubjectFallback: r.SubjectFallback,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		SentAt:          timePtr(r.SentAt),
		OpenedAt:        timePtr(r.OpenedAt),
		RepliedAt:       timePtr(r.RepliedAt),
	}
}

const emailColumns = `id, workspace_id, recipient_id, subject, body, status,
	personalization, formality, persuasiveness, subject_fallback,
	created_at, updated_at, sent_at, opened_at, replied_at`

type PostgresEmailRepository struct {
	db *sqlx.DB
}

func NewPostgresEmailRepository(db *sqlx.DB) *PostgresEmailRepository {
	return &PostgresEmailRepository{db: db}
}

func (r *PostgresEmailRepository) Create(ctx context.Context, e *model.Email) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO emails (`+emailColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.WorkspaceID, e.RecipientID, e.Subject, e.Body, string(e.Status),
		e.Tone.Personalization, e.Tone.Formality, e.Tone.Persuasiveness, e.SubjectFallback,
		e.CreatedAt, e.UpdatedAt, nullTime(e.SentAt), nullTime(e.OpenedAt), nullTime(e.RepliedAt))
	return err
}

func (r *PostgresEmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	var row emailRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *PostgresEmailRepository) FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Email, error) {
	var rows []emailRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT `+emailColumns+` FROM emails WHERE workspace_id = $1 ORDER BY created_at DESC`, workspaceID); err != nil {
		return nil, err
	}
	out := make([]*model.Email, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (r *PostgresEmailRepository) FindActive(ctx context.Context, workspaceID, recipientID string) (*model.Email, error) {
	var row emailRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+emailColumns+` FROM emails
		WHERE workspace_id = $1 AND recipient_id = $2 AND status IN ('draft', 'failed')
		ORDER BY updated_at DESC LIMIT 1`, workspaceID, recipientID)
	if err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *PostgresEmailRepository) Update(ctx context.Context, e *model.Email) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE emails SET subject=$1, body=$2, status=$3,
			personalization=$4, formality=$5, persuasiveness=$6, subject_fallback=$7,
			updated_at=$8, sent_at=$9, opened_at=$10, replied_at=$11
		WHERE id=$12`,
		e.Subject, e.Body, string(e.Status),
		e.Tone.Personalization, e.Tone.Formality, e.Tone.Persuasiveness, e.SubjectFallback,
		e.UpdatedAt, nullTime(e.SentAt), nullTime(e.OpenedAt), nullTime(e.RepliedAt), e.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS workspaces (
			id VARCHAR(255) PRIMARY KEY,
			owner_id VARCHAR(255) NOT NULL,
			name VARCHAR(60) NOT NULL,
			color VARCHAR(16) NOT NULL DEFAULT 'blue',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS workspaces_owner_idx ON workspaces (owner_id)`,
		`CREATE TABLE IF NOT EXISTS sender_contexts (
			id VARCHAR(255) PRIMARY KEY,
			workspace_id VARCHAR(255) UNIQUE NOT NULL,
			intent VARCHAR(32) NOT NULL,
			data JSONB NOT NULL,
			summary TEXT NOT NULL,
			additional_notes TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recipients (
			id VARCHAR(255) PRIMARY KEY,
			workspace_id VARCHAR(255) NOT NULL,
			handle VARCHAR(64) NOT NULL,
			email VARCHAR(320),
			name VARCHAR(255),
			profile_snapshot VARCHAR(5000),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS recipients_workspace_idx ON recipients (workspace_id)`,
		`CREATE TABLE IF NOT EXISTS emails (
			id VARCHAR(255) PRIMARY KEY,
			workspace_id VARCHAR(255) NOT NULL,
			recipient_id VARCHAR(255) NOT NULL,
			subject VARCHAR(200) NOT NULL,
			body TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			personalization SMALLINT NOT NULL CHECK (personalization BETWEEN 0 AND 100),
			formality SMALLINT NOT NULL CHECK (formality BETWEEN 0 AND 100),
			persuasiveness SMALLINT NOT NULL CHECK (persuasiveness BETWEEN 0 AND 100),
			subject_fallback BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			sent_at TIMESTAMPTZ,
			opened_at TIMESTAMPTZ,
			replied_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS emails_workspace_idx ON emails (workspace_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS emails_recipient_idx ON emails (workspace_id, recipient_id, status)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}
