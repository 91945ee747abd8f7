package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lysandra-ai-platform/internal/store"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestAppendMessage_UpsertsConversationAndInserts(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("+15550001111", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs("msg-1", "+15550001111", store.RoleUser, "Hola", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.AppendMessage(context.Background(), "+15550001111", store.Message{
		ID: "msg-1", Role: store.RoleUser, Content: "Hola", Timestamp: ts,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessage_RollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("c", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "c", store.RoleUser, "x", pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.AppendMessage(context.Background(), "c", store.Message{Role: store.RoleUser, Content: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentMessages_NewestFirst(t *testing.T) {
	s, mock := newMockStore(t)
	t2 := time.Date(2025, 3, 1, 10, 0, 2, 0, time.UTC)
	t1 := t2.Add(-time.Second)

	mock.ExpectQuery("SELECT id, role, content, created_at FROM messages").
		WithArgs("c", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "role", "content", "created_at"}).
			AddRow("m2", store.RoleAssistant, "¿En qué te ayudo?", t2).
			AddRow("m1", store.RoleUser, "Hola", t1))

	msgs, err := s.RecentMessages(context.Background(), "c", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, t1, msgs[1].Timestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocument(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs(store.CollectionSettings, store.DocSettingsMain).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"aiModel":"gemini-2.0-flash"}`)))

	doc, err := s.GetDocument(context.Background(), store.CollectionSettings, store.DocSettingsMain)
	require.NoError(t, err)
	assert.JSONEq(t, `{"aiModel":"gemini-2.0-flash"}`, string(doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocument_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT data FROM documents").
		WithArgs(store.CollectionKnowledge, store.DocKnowledgeCompany).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetDocument(context.Background(), store.CollectionKnowledge, store.DocKnowledgeCompany)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDocument(t *testing.T) {
	s, mock := newMockStore(t)
	data := json.RawMessage(`{"companyName":"CoreAura"}`)

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(store.CollectionSettings, store.DocSettingsMain, []byte(data)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetDocument(context.Background(), store.CollectionSettings, store.DocSettingsMain, data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAppointments(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, client_name, date, type, status, created_at FROM appointments").
		WithArgs("2025-03-01T10:00:00Z", store.StatusConfirmed).
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_name", "date", "type", "status", "created_at"}).
			AddRow("a1", "Ana", "2025-03-01T10:00:00Z", "Demo", store.StatusConfirmed, created))

	appts, err := s.FindAppointments(context.Background(), "2025-03-01T10:00:00Z", store.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "Ana", appts[0].ClientName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAppointment(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "Ana", "2025-03-01T10:00:00Z", "Demo", store.StatusConfirmed, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	appt, err := s.CreateAppointment(context.Background(), store.Appointment{
		ClientName: "Ana", Date: "2025-03-01T10:00:00Z", Type: "Demo", Status: store.StatusConfirmed,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.False(t, appt.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListConversations(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT c.id, c.updated_at").
		WithArgs(0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "updated_at", "msg_id", "role", "content", "created_at"}).
			AddRow("+15550001111", ts, "m1", store.RoleAssistant, "Listo", ts))

	list, err := s.ListConversations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "Listo", list[0].LastMessage.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAppointments_WrapsUnavailable(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("connection refused"))

	_, err := s.CountAppointments(context.Background())
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}
