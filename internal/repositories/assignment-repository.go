package repositories

import (
	"context"
	"errors"
	"fmt"

	"equipment-system/internal/entities"
	apperrors "equipment-system/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const assignmentTable = "assignments"
const assignmentFields = "id, equipment_id, user_id, assigned_by, assignment_date, expected_return_date, return_date, status, notes, return_notes, created_at, updated_at"

type AssignmentRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, a *entities.Assignment) (*entities.Assignment, error)
	FindActiveByEquipment(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.Assignment, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id uint64, returnNotes *string) (*entities.Assignment, error)
	MarkCancelled(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Assignment, error)
	ListByEquipment(ctx context.Context, equipmentID uint64) ([]entities.Assignment, error)
}

type AssignmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewAssignmentRepository(storage *pgxpool.Pool, logger *zap.Logger) AssignmentRepositoryInterface {
	return &AssignmentRepository{storage: storage, logger: logger}
}

func scanAssignment(row pgx.Row) (*entities.Assignment, error) {
	var a entities.Assignment
	err := row.Scan(
		&a.ID, &a.EquipmentID, &a.UserID, &a.AssignedBy, &a.AssignmentDate,
		&a.ExpectedReturnDate, &a.ReturnDate, &a.Status, &a.Notes, &a.ReturnNotes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	return &a, nil
}

func (r *AssignmentRepository) Create(ctx context.Context, tx pgx.Tx, a *entities.Assignment) (*entities.Assignment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(assignmentTable).
		Columns("equipment_id", "user_id", "assigned_by", "assignment_date", "expected_return_date", "status", "notes").
		Values(a.EquipmentID, a.UserID, a.AssignedBy, a.AssignmentDate, a.ExpectedReturnDate, string(a.Status), a.Notes).
		Suffix("RETURNING " + assignmentFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build assignment insert: %w", err)
	}
	created, err := scanAssignment(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
	if err != nil && isUniqueViolation(err) {
		return nil, apperrors.NewConflictError("equipment %d already has an active assignment", a.EquipmentID)
	}
	return created, err
}

func (r *AssignmentRepository) FindActiveByEquipment(ctx context.Context, tx pgx.Tx, equipmentID uint64) (*entities.Assignment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(assignmentFields).
		From(assignmentTable).
		Where(sq.Eq{"equipment_id": equipmentID, "status": string(entities.AssignmentStatusActive)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active assignment select: %w", err)
	}
	return scanAssignment(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
}

func (r *AssignmentRepository) MarkReturned(ctx context.Context, tx pgx.Tx, id uint64, returnNotes *string) (*entities.Assignment, error) {
	return r.closeActive(ctx, tx, id, sq.Eq{
		"status":       string(entities.AssignmentStatusReturned),
		"return_date":  sq.Expr("NOW()"),
		"return_notes": returnNotes,
	})
}

// MarkCancelled closes an active assignment that was never returned. return_date stays NULL.
func (r *AssignmentRepository) MarkCancelled(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Assignment, error) {
	return r.closeActive(ctx, tx, id, sq.Eq{
		"status": string(entities.AssignmentStatusCancelled),
	})
}

func (r *AssignmentRepository) closeActive(ctx context.Context, tx pgx.Tx, id uint64, fields sq.Eq) (*entities.Assignment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(assignmentTable).
		SetMap(fields).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": string(entities.AssignmentStatusActive)}).
		Suffix("RETURNING " + assignmentFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build assignment close: %w", err)
	}
	a, err := scanAssignment(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NewConflictError("assignment %d is no longer active", id)
	}
	return a, err
}

func (r *AssignmentRepository) ListByEquipment(ctx context.Context, equipmentID uint64) ([]entities.Assignment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(assignmentFields).
		From(assignmentTable).
		Where(sq.Eq{"equipment_id": equipmentID}).
		OrderBy("assignment_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build assignment list: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]entities.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}
