package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"msgboard/internal/database"
	"msgboard/internal/model"
)

// ambiguityProbe is enough rows to tell a unique match from a duplicate one.
const ambiguityProbe = 2

// SQLStore is a MessageStore backed by a pooled *sql.DB.
type SQLStore struct {
	db      *sql.DB
	dialect database.Dialect
	logger  *zap.Logger
	newID   func() string
}

// NewSQLStore creates a store over db using the SQL dialect d.
func NewSQLStore(db *sql.DB, d database.Dialect, logger *zap.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger.Named("store"),
		newID:   func() string { return uuid.NewString() },
	}
}

// withConn borrows one connection from the pool for the duration of fn and
// always hands it back, whatever fn returns.
func (s *SQLStore) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		s.logger.Error("acquire connection failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	defer conn.Close()

	if err := fn(conn); err != nil {
		s.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
		return err
	}
	return nil
}

func (s *SQLStore) columns() []string {
	return []string{database.ColID, database.ColMessage, s.dialect.Quote(database.ColUser)}
}

func (s *SQLStore) selectMessages() sq.SelectBuilder {
	return s.dialect.Builder().Select(s.columns()...).From(database.TableMessages)
}

// ListAll implements MessageStore.
func (s *SQLStore) ListAll(ctx context.Context) ([]model.Message, error) {
	const op = "list messages"

	query, args, err := s.selectMessages().ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	var messages []model.Message
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		var err error
		messages, err = queryMessages(ctx, conn, op, query, args, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetByID implements MessageStore. Zero matches yield ErrNotFound and more
// than one match yields ErrMalformed.
func (s *SQLStore) GetByID(ctx context.Context, id string) (model.Message, error) {
	const op = "get message"

	query, args, err := s.selectMessages().
		Where(sq.Eq{database.ColID: id}).
		Limit(ambiguityProbe).
		ToSql()
	if err != nil {
		return model.Message{}, fmt.Errorf("%s: build query: %w", op, err)
	}

	var messages []model.Message
	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		var err error
		messages, err = queryMessages(ctx, conn, op, query, args, ambiguityProbe)
		return err
	})
	if err != nil {
		return model.Message{}, err
	}

	switch len(messages) {
	case 0:
		return model.Message{}, fmt.Errorf("%s %q: %w", op, id, ErrNotFound)
	case 1:
		return messages[0], nil
	default:
		return model.Message{}, fmt.Errorf("%s %q: %d rows: %w", op, id, len(messages), ErrMalformed)
	}
}

// Create implements MessageStore.
func (s *SQLStore) Create(ctx context.Context, text, author string) (model.Message, error) {
	const op = "create message"

	msg := model.Message{ID: s.newID(), Text: text, Author: author}

	insert := s.dialect.Builder().
		Insert(database.TableMessages).
		Columns(s.columns()...).
		Values(msg.ID, msg.Text, msg.Author)
	if s.dialect.Returning {
		insert = insert.Suffix("RETURNING " + database.ColID)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return model.Message{}, fmt.Errorf("%s: build query: %w", op, err)
	}

	err = s.withConn(ctx, op, func(conn *sql.Conn) error {
		if s.dialect.Returning {
			return insertReturning(ctx, conn, op, query, args, msg.ID)
		}
		return insertExec(ctx, conn, op, query, args)
	})
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// queryMessages runs a select and decodes every row. limit > 0 stops after
// that many rows.
func queryMessages(ctx context.Context, conn *sql.Conn, op, query string, args []any, limit int) ([]model.Message, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err, ErrMalformed)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.ID, &msg.Text, &msg.Author); err != nil {
			return nil, fmt.Errorf("%s: scan: %w: %w", op, ErrMalformed, err)
		}
		messages = append(messages, msg)
		if limit > 0 && len(messages) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err, ErrMalformed)
	}
	return messages, nil
}

func insertReturning(ctx context.Context, conn *sql.Conn, op, query string, args []any, wantID string) error {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return classify(op, err, ErrCreation)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return classify(op, err, ErrCreation)
		}
		return fmt.Errorf("%s: no id returned: %w", op, ErrCreation)
	}

	var gotID string
	if err := rows.Scan(&gotID); err != nil {
		return fmt.Errorf("%s: read back id: %w: %w", op, ErrMalformed, err)
	}
	if gotID != wantID {
		return fmt.Errorf("%s: returned id %q, want %q: %w", op, gotID, wantID, ErrCreation)
	}
	return nil
}

func insertExec(ctx context.Context, conn *sql.Conn, op, query string, args []any) error {
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(op, err, ErrCreation)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w: %w", op, ErrMalformed, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %d rows affected: %w", op, n, ErrCreation)
	}
	return nil
}
