package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/habitat-apps/docchat/internal/model"
	"github.com/habitat-apps/docchat/internal/pkg/dbutil"
	appErr "github.com/habitat-apps/docchat/internal/pkg/errors"
)

var sessionFields = []string{"id", "user_id", "document_id", "title", "ctime", "mtime"}

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *model.ChatSession) error {
	data := map[string]interface{}{
		"id":          session.ID,
		"user_id":     session.UserID,
		"document_id": session.DocumentID,
		"title":       session.Title,
		"ctime":       session.Ctime,
		"mtime":       session.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("chat_sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) GetByID(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	where := map[string]interface{}{
		"id":      sessionID,
		"user_id": userID,
		"_limit":  []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("chat_sessions", where, sessionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var session model.ChatSession
	if err := scanSession(rows, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepo) List(ctx context.Context, userID string) ([]model.ChatSession, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
	}
	sqlStr, args, err := builder.BuildSelect("chat_sessions", where, sessionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var sessions []model.ChatSession
	for rows.Next() {
		var session model.ChatSession
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) Delete(ctx context.Context, userID, sessionID string) error {
	where := map[string]interface{}{"id": sessionID, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("chat_sessions", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteByDocument removes every session bound to a document along with the
// session messages. Used when a document is deleted.
func (r *SessionRepo) DeleteByDocument(ctx context.Context, userID, docID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE session_id IN (SELECT id FROM chat_sessions WHERE user_id = $1 AND document_id = $2)`,
		userID, docID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE user_id = $1 AND document_id = $2`,
		userID, docID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SessionRepo) UpdateTitle(ctx context.Context, sessionID, title string, mtime int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chat_sessions SET title = $1, mtime = $2 WHERE id = $3`, title, mtime, sessionID)
	return err
}

// Touch bumps the session mtime so recently active sessions sort first.
func (r *SessionRepo) Touch(ctx context.Context, sessionID string, mtime int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chat_sessions SET mtime = $1 WHERE id = $2`, mtime, sessionID)
	return err
}

func scanSession(rows *sql.Rows, session *model.ChatSession) error {
	return rows.Scan(&session.ID, &session.UserID, &session.DocumentID, &session.Title, &session.Ctime, &session.Mtime)
}
