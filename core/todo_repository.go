package core

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// ErrTodoNotFound is returned when the item does not exist for that user.
var ErrTodoNotFound = errors.New("todo not found")

// Todo is one item in a user's ordered list. Higher Position sorts first.
type Todo struct {
	ID          int64
	UserID      int64
	Description string
	Done        bool
	Position    int32
}

// TodoRepository persists per-user todo lists.
type TodoRepository interface {
	List(ctx context.Context, userID int64) ([]Todo, error)
	Create(ctx context.Context, userID int64, description string) (*Todo, error)
	SetDone(ctx context.Context, userID, id int64, done bool) error
	Delete(ctx context.Context, userID, id int64) error
	DeleteDone(ctx context.Context, userID int64) (int64, error)
	Reorder(ctx context.Context, userID int64, orderedIDs []int64) ([]Todo, error)
}

type PgTodoRepository struct {
	db DBTX
}

func NewPgTodoRepository(db DBTX) *PgTodoRepository {
	return &PgTodoRepository{db: db}
}

const (
	listTodosSQL  = `SELECT id, user_id, description, done, position FROM todos WHERE user_id=$1 ORDER BY position DESC, id DESC`
	createTodoSQL = `
INSERT INTO todos (user_id, description, position)
VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM todos WHERE user_id=$1))
RETURNING id, position`
	setTodoDoneSQL     = `UPDATE todos SET done=$1 WHERE id=$2 AND user_id=$3`
	deleteTodoSQL      = `DELETE FROM todos WHERE id=$1 AND user_id=$2`
	deleteDoneTodosSQL = `DELETE FROM todos WHERE user_id=$1 AND done`
	reorderTodosSQL    = `
UPDATE todos AS t SET position = n.position
FROM (SELECT unnest($1::int8[]) AS id, unnest($2::int4[]) AS position) AS n
WHERE t.id = n.id AND t.user_id = $3`
)

func (r *PgTodoRepository) List(ctx context.Context, userID int64) ([]Todo, error) {
	rows, err := r.db.Query(ctx, listTodosSQL, userID)
	if err != nil {
		return nil, oops.Code("TODO_LIST_FAILED").With("user_id", userID).Wrap(err)
	}
	defer rows.Close()
	items := make([]Todo, 0)
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Done, &t.Position); err != nil {
			return nil, oops.Code("TODO_LIST_FAILED").With("user_id", userID).Wrap(err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TODO_LIST_FAILED").With("user_id", userID).Wrap(err)
	}
	return items, nil
}

func (r *PgTodoRepository) Create(ctx context.Context, userID int64, description string) (*Todo, error) {
	t := Todo{UserID: userID, Description: strings.TrimSpace(description)}
	if err := r.db.QueryRow(ctx, createTodoSQL, userID, t.Description).Scan(&t.ID, &t.Position); err != nil {
		return nil, oops.Code("TODO_CREATE_FAILED").With("user_id", userID).Wrap(err)
	}
	return &t, nil
}

func (r *PgTodoRepository) SetDone(ctx context.Context, userID, id int64, done bool) error {
	tag, err := r.db.Exec(ctx, setTodoDoneSQL, done, id, userID)
	if err != nil {
		return oops.Code("TODO_UPDATE_FAILED").With("user_id", userID).With("todo_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func (r *PgTodoRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, deleteTodoSQL, id, userID)
	if err != nil {
		return oops.Code("TODO_DELETE_FAILED").With("user_id", userID).With("todo_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// DeleteDone removes every completed item and returns how many went.
func (r *PgTodoRepository) DeleteDone(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteDoneTodosSQL, userID)
	if err != nil {
		return 0, oops.Code("TODO_DELETE_FAILED").With("user_id", userID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// Reorder assigns positions so orderedIDs[0] ends up on top, then returns
// the refreshed list. IDs belonging to other users are ignored.
func (r *PgTodoRepository) Reorder(ctx context.Context, userID int64, orderedIDs []int64) ([]Todo, error) {
	if len(orderedIDs) > 0 {
		positions := make([]int32, len(orderedIDs))
		for i := range orderedIDs {
			positions[i] = int32(len(orderedIDs) - 1 - i)
		}
		if _, err := r.db.Exec(ctx, reorderTodosSQL, orderedIDs, positions, userID); err != nil {
			return nil, oops.Code("TODO_REORDER_FAILED").With("user_id", userID).Wrap(err)
		}
	}
	return r.List(ctx, userID)
}
