package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/benvon/todo-assistant/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const tasksTable = "tasks"

var taskColumns = []string{
	"id", "user_id", "title", "description", "due_at", "priority",
	"category", "completed", "completed_at", "created_at", "updated_at",
}

const priorityRankSQL = "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"

// TaskRepository stores tasks. Every method runs inside the owner's scope.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts task for ownerID. ID, UserID and timestamps are filled in.
func (r *TaskRepository) Create(ctx context.Context, ownerID uuid.UUID, task *models.Task) error {
	scope := r.db.ForUser(ownerID)
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.UserID = ownerID
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Category == nil {
		task.Category = []string{}
	}

	now := time.Now()
	query, args, err := scope.Insert(tasksTable).
		Columns("id", "user_id", "title", "description", "due_at", "priority", "category", "completed", "completed_at", "created_at", "updated_at").
		Values(task.ID, task.UserID, task.Title, task.Description, task.DueAt, task.Priority, pq.StringArray(task.Category), task.Completed, task.CompletedAt, now, now).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task insert: %w", err)
	}

	return scope.Do(ctx, func(q Querier) error {
		if err := q.QueryRowContext(ctx, query, args...).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
			return mapError("create task", err)
		}
		return nil
	})
}

// GetByID returns the task when it belongs to ownerID, ErrNotFound otherwise
func (r *TaskRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	scope := r.db.ForUser(ownerID)
	query, args, err := scope.Select(tasksTable, taskColumns...).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task query: %w", err)
	}

	var task *models.Task
	err = scope.Do(ctx, func(q Querier) error {
		t, err := scanTask(q.QueryRowContext(ctx, query, args...))
		if err != nil {
			return mapError("get task", err)
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// List returns one page of the owner's tasks matching filter and the total
// number of matches. PageSize 0 returns every match.
func (r *TaskRepository) List(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, int, error) {
	scope := r.db.ForUser(ownerID)

	countQuery, countArgs, err := applyTaskFilter(scope.Select(tasksTable, "COUNT(*)"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build task count: %w", err)
	}

	listBuilder := applyTaskOrder(applyTaskFilter(scope.Select(tasksTable, taskColumns...), filter), filter)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		listBuilder = listBuilder.Limit(uint64(filter.PageSize)).Offset(uint64((page - 1) * filter.PageSize))
	}
	listQuery, listArgs, err := listBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build task list: %w", err)
	}

	var (
		tasks []*models.Task
		total int
	)
	err = scope.Do(ctx, func(q Querier) error {
		if err := q.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return mapError("count tasks", err)
		}

		rows, err := q.QueryContext(ctx, listQuery, listArgs...)
		if err != nil {
			return mapError("query tasks", err)
		}
		defer func() { _ = rows.Close() }()

		tasks = make([]*models.Task, 0)
		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("failed to scan task: %w", err)
			}
			tasks = append(tasks, t)
		}
		if err := rows.Err(); err != nil {
			return mapError("iterate tasks", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListInRange returns every owner task due in [from, to), plus undated tasks
// created in that range, ordered by due date.
func (r *TaskRepository) ListInRange(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*models.Task, error) {
	tasks, _, err := r.List(ctx, ownerID, models.TaskFilter{
		DueFrom:               &from,
		DueTo:                 &to,
		IncludeUndatedCreated: true,
		Sort:                  models.TaskSortDueAt,
	})
	return tasks, err
}

// Update writes the mutable fields of task. Ownership cannot change.
func (r *TaskRepository) Update(ctx context.Context, ownerID uuid.UUID, task *models.Task) error {
	scope := r.db.ForUser(ownerID)
	if task.Category == nil {
		task.Category = []string{}
	}

	query, args, err := scope.Update(tasksTable).
		Set("title", task.Title).
		Set("description", task.Description).
		Set("due_at", task.DueAt).
		Set("priority", task.Priority).
		Set("category", pq.StringArray(task.Category)).
		Set("completed", task.Completed).
		Set("completed_at", task.CompletedAt).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": task.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task update: %w", err)
	}

	return scope.Do(ctx, func(q Querier) error {
		if err := q.QueryRowContext(ctx, query, args...).Scan(&task.UpdatedAt); err != nil {
			return mapError("update task", err)
		}
		task.UserID = ownerID
		return nil
	})
}

// ToggleCompletion flips completed in a single statement and stamps or clears
// completed_at accordingly. It returns the updated task.
func (r *TaskRepository) ToggleCompletion(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (*models.Task, error) {
	scope := r.db.ForUser(ownerID)
	query, args, err := scope.Update(tasksTable).
		Set("completed", sq.Expr("NOT completed")).
		Set("completed_at", sq.Expr("CASE WHEN completed THEN NULL ELSE ?::timestamptz END", at)).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(taskColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build task toggle: %w", err)
	}

	var task *models.Task
	err = scope.Do(ctx, func(q Querier) error {
		t, err := scanTask(q.QueryRowContext(ctx, query, args...))
		if err != nil {
			return mapError("toggle task", err)
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the task permanently
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	scope := r.db.ForUser(ownerID)
	query, args, err := scope.Delete(tasksTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task delete: %w", err)
	}

	return scope.Do(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return mapError("delete task", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func applyTaskFilter(b sq.SelectBuilder, f models.TaskFilter) sq.SelectBuilder {
	if f.Completed != nil {
		b = b.Where(sq.Eq{"completed": *f.Completed})
	}
	if f.Priority != nil {
		b = b.Where(sq.Eq{"priority": string(*f.Priority)})
	}
	if f.Category != nil {
		b = b.Where(sq.Expr("? = ANY(category)", *f.Category))
	}

	var due sq.And
	if f.DueFrom != nil {
		due = append(due, sq.GtOrEq{"due_at": *f.DueFrom})
	}
	if f.DueTo != nil {
		due = append(due, sq.Lt{"due_at": *f.DueTo})
	}
	if len(due) == 0 {
		return b
	}
	if !f.IncludeUndatedCreated {
		return b.Where(due)
	}

	created := sq.And{sq.Eq{"due_at": nil}}
	if f.DueFrom != nil {
		created = append(created, sq.GtOrEq{"created_at": *f.DueFrom})
	}
	if f.DueTo != nil {
		created = append(created, sq.Lt{"created_at": *f.DueTo})
	}
	return b.Where(sq.Or{due, created})
}

func applyTaskOrder(b sq.SelectBuilder, f models.TaskFilter) sq.SelectBuilder {
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	switch f.Sort {
	case models.TaskSortDueAt:
		return b.OrderBy("due_at "+dir+" NULLS LAST", "created_at DESC")
	case models.TaskSortPriority:
		return b.OrderBy(priorityRankSQL+" "+dir, "due_at ASC NULLS LAST")
	case models.TaskSortCreatedAt:
		return b.OrderBy("created_at " + dir)
	default:
		return b.OrderBy("created_at DESC")
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
		dueAt       sql.NullTime
		completedAt sql.NullTime
		category    pq.StringArray
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&description,
		&dueAt,
		&t.Priority,
		&category,
		&t.Completed,
		&completedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if dueAt.Valid {
		t.DueAt = &dueAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	t.Category = []string(category)
	if t.Category == nil {
		t.Category = []string{}
	}
	return &t, nil
}
