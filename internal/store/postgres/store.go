// Package postgres implements the document store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

// PgxPool is the subset of *pgxpool.Pool used by Store.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists conversations, documents, and appointments in Postgres.
type Store struct {
	pool   PgxPool
	tracer trace.Tracer
}

// New wraps a pgx pool.
func New(pool PgxPool) *Store {
	if pool == nil {
		panic("postgres: pgx pool required")
	}
	return &Store{
		pool:   pool,
		tracer: otel.Tracer("lysandra.internal.store.postgres"),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg store.Message) error {
	ctx, span := s.tracer.Start(ctx, "store.postgres.append_message")
	defer span.End()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return unavailable("begin append", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO conversations (id, created_at, updated_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = GREATEST(conversations.updated_at, EXCLUDED.updated_at)
	`, conversationID, msg.Timestamp); err != nil {
		_ = tx.Rollback(ctx)
		span.RecordError(err)
		return unavailable("upsert conversation", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msg.ID, conversationID, msg.Role, msg.Content, msg.Timestamp); err != nil {
		_ = tx.Rollback(ctx)
		span.RecordError(err)
		return unavailable("insert message", err)
	}
	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return unavailable("commit append", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]store.Message, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.recent_messages")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query recent messages", err)
	}
	return scanMessages(rows)
}

func (s *Store) History(ctx context.Context, conversationID string) ([]store.Message, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.history")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`, conversationID)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query history", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]store.Message, error) {
	defer rows.Close()
	var out []store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, unavailable("scan message", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate messages", err)
	}
	return out, nil
}

func (s *Store) ListConversations(ctx context.Context, limit int) ([]store.ConversationSummary, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.list_conversations")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.updated_at, m.id, m.role, m.content, m.created_at
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, role, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, seq DESC
			LIMIT 1
		) m ON true
		ORDER BY c.updated_at DESC, c.id ASC
		LIMIT NULLIF($1, 0)
	`, limit)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("query conversations", err)
	}
	defer rows.Close()

	var out []store.ConversationSummary
	for rows.Next() {
		var (
			summary   store.ConversationSummary
			msgID     pgtype.Text
			role      pgtype.Text
			content   pgtype.Text
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&summary.ID, &summary.LastActivity, &msgID, &role, &content, &createdAt); err != nil {
			return nil, unavailable("scan conversation", err)
		}
		if msgID.Valid {
			summary.LastMessage = &store.Message{
				ID:        msgID.String,
				Role:      role.String,
				Content:   content.String,
				Timestamp: createdAt.Time,
			}
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate conversations", err)
	}
	return out, nil
}

func (s *Store) CountConversations(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT count(*) FROM conversations")
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (json.RawMessage, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.get_document")
	defer span.End()

	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("get document", err)
	}
	return json.RawMessage(data), nil
}

func (s *Store) SetDocument(ctx context.Context, collection, id string, data json.RawMessage) error {
	ctx, span := s.tracer.Start(ctx, "store.postgres.set_document")
	defer span.End()

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`, collection, id, []byte(data)); err != nil {
		span.RecordError(err)
		return unavailable("set document", err)
	}
	return nil
}

func (s *Store) FindAppointments(ctx context.Context, date, status string) ([]store.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.find_appointments")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT id, client_name, date, type, status, created_at
		FROM appointments
		WHERE date = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC
	`, date, status)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("find appointments", err)
	}
	return scanAppointments(rows)
}

func (s *Store) CreateAppointment(ctx context.Context, appt store.Appointment) (store.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.create_appointment")
	defer span.End()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO appointments (id, client_name, date, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, appt.ID, appt.ClientName, appt.Date, appt.Type, appt.Status, appt.CreatedAt); err != nil {
		span.RecordError(err)
		return store.Appointment{}, unavailable("insert appointment", err)
	}
	return appt, nil
}

func (s *Store) ListAppointments(ctx context.Context, limit int) ([]store.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.postgres.list_appointments")
	defer span.End()

	rows, err := s.pool.Query(ctx, `
		SELECT id, client_name, date, type, status, created_at
		FROM appointments
		ORDER BY created_at DESC
		LIMIT NULLIF($1, 0)
	`, limit)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("list appointments", err)
	}
	return scanAppointments(rows)
}

func scanAppointments(rows pgx.Rows) ([]store.Appointment, error) {
	defer rows.Close()
	var out []store.Appointment
	for rows.Next() {
		var appt store.Appointment
		if err := rows.Scan(&appt.ID, &appt.ClientName, &appt.Date, &appt.Type, &appt.Status, &appt.CreatedAt); err != nil {
			return nil, unavailable("scan appointment", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate appointments", err)
	}
	return out, nil
}

func (s *Store) CountAppointments(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT count(*) FROM appointments")
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("postgres: %s: %w: %w", op, store.ErrStoreUnavailable, err)
}
