package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"equipment-system/internal/entities"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const equipmentTable = "equipments"
const equipmentFields = "id, name, type, brand, model_name, status, assigned_to, assignment_history, created_at, updated_at"

var equipmentAllowedSortFields = map[string]bool{
	"id": true, "name": true, "type": true, "brand": true, "status": true, "created_at": true, "updated_at": true,
}

// EquipmentQuery narrows a list beyond the generic filter.
type EquipmentQuery struct {
	Status     *entities.EquipmentStatus
	Type       *entities.EquipmentType
	AssignedTo *uint64
}

type EquipmentRepositoryInterface interface {
	Create(ctx context.Context, e *entities.Equipment) (*entities.Equipment, error)
	FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	List(ctx context.Context, filter types.Filter, query EquipmentQuery) ([]entities.Equipment, uint64, error)
	UpdateFields(ctx context.Context, e *entities.Equipment) (*entities.Equipment, error)
	// UpdateStatusIf writes newStatus only while the stored status equals expected.
	UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uint64, expected, newStatus entities.EquipmentStatus) (*entities.Equipment, error)
	MarkAssigned(ctx context.Context, tx pgx.Tx, id, userID, assignmentID uint64) (*entities.Equipment, error)
	MarkReturned(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error)
	// DeleteUnlessAssigned returns false when no unassigned row with that id existed.
	DeleteUnlessAssigned(ctx context.Context, id uint64) (bool, error)
}

type EquipmentRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEquipmentRepository(storage *pgxpool.Pool, logger *zap.Logger) EquipmentRepositoryInterface {
	return &EquipmentRepository{storage: storage, logger: logger}
}

func scanEquipment(row pgx.Row) (*entities.Equipment, error) {
	var e entities.Equipment
	var assignedTo *int64
	var history []int64
	err := row.Scan(
		&e.ID, &e.Name, &e.Type, &e.Brand, &e.ModelName, &e.Status,
		&assignedTo, &history, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan equipment: %w", err)
	}
	if assignedTo != nil {
		id := uint64(*assignedTo)
		e.AssignedTo = &id
	}
	e.AssignmentHistory = make([]uint64, 0, len(history))
	for _, h := range history {
		e.AssignmentHistory = append(e.AssignmentHistory, uint64(h))
	}
	return &e, nil
}

func (r *EquipmentRepository) Create(ctx context.Context, e *entities.Equipment) (*entities.Equipment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(equipmentTable).
		Columns("name", "type", "brand", "model_name", "status").
		Values(e.Name, string(e.Type), e.Brand, e.ModelName, string(e.Status)).
		Suffix("RETURNING " + equipmentFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build equipment insert: %w", err)
	}
	return scanEquipment(r.storage.QueryRow(ctx, query, args...))
}

func (r *EquipmentRepository) FindByID(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(equipmentFields).From(equipmentTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build equipment select: %w", err)
	}
	return scanEquipment(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
}

func applyEquipmentConditions(b sq.SelectBuilder, filter types.Filter, q EquipmentQuery) sq.SelectBuilder {
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		b = b.Where(sq.Or{
			sq.ILike{"name": like},
			sq.ILike{"brand": like},
			sq.ILike{"model_name": like},
		})
	}
	if q.Status != nil {
		b = b.Where(sq.Eq{"status": string(*q.Status)})
	}
	if q.Type != nil {
		b = b.Where(sq.Eq{"type": string(*q.Type)})
	}
	if q.AssignedTo != nil {
		b = b.Where(sq.Eq{"assigned_to": *q.AssignedTo})
	}
	return b
}

// equipmentOrderBy keeps whitelisted sort fields in name order and always ends
// with id so pages are stable.
func equipmentOrderBy(sort map[string]string) []string {
	fields := make([]string, 0, len(sort))
	for field := range sort {
		if equipmentAllowedSortFields[field] && field != "id" {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)

	clauses := make([]string, 0, len(fields)+1)
	for _, field := range fields {
		clauses = append(clauses, field+" "+sortDirection(sort[field]))
	}
	return append(clauses, "id "+sortDirection(sort["id"]))
}

func sortDirection(direction string) string {
	if direction == "" || strings.EqualFold(direction, "desc") {
		return "DESC"
	}
	return "ASC"
}

func (r *EquipmentRepository) List(ctx context.Context, filter types.Filter, q EquipmentQuery) ([]entities.Equipment, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	countQuery, countArgs, err := applyEquipmentConditions(psql.Select("COUNT(id)").From(equipmentTable), filter, q).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build equipment count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count equipments: %w", err)
	}
	if total == 0 {
		return []entities.Equipment{}, 0, nil
	}

	selectBuilder := applyEquipmentConditions(psql.Select(equipmentFields).From(equipmentTable), filter, q).
		OrderBy(equipmentOrderBy(filter.Sort)...)
	if filter.Limit > 0 {
		selectBuilder = selectBuilder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		selectBuilder = selectBuilder.Offset(uint64(filter.Offset))
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build equipment list: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list equipments: %w", err)
	}
	defer rows.Close()

	items := make([]entities.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate equipments: %w", err)
	}
	return items, total, nil
}

func (r *EquipmentRepository) UpdateFields(ctx context.Context, e *entities.Equipment) (*entities.Equipment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(equipmentTable).
		Set("name", e.Name).
		Set("brand", e.Brand).
		Set("model_name", e.ModelName).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": e.ID}).
		Suffix("RETURNING " + equipmentFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build equipment update: %w", err)
	}
	return scanEquipment(r.storage.QueryRow(ctx, query, args...))
}

// conditionalUpdate runs an UPDATE guarded by the expected status. A missing
// row is reported as ConflictError because callers have already read it.
func (r *EquipmentRepository) conditionalUpdate(ctx context.Context, tx pgx.Tx, b sq.UpdateBuilder, id uint64, expected entities.EquipmentStatus) (*entities.Equipment, error) {
	query, args, err := b.
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "status": string(expected)}).
		Suffix("RETURNING " + equipmentFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build conditional update: %w", err)
	}
	e, err := scanEquipment(getQuerier(r.storage, tx).QueryRow(ctx, query, args...))
	if errors.Is(err, apperrors.ErrNotFound) {
		r.logger.Warn("conditional equipment update missed",
			zap.Uint64("equipmentID", id), zap.String("expectedStatus", string(expected)))
		return nil, apperrors.NewConflictError("equipment %d was modified concurrently (expected status %q)", id, expected)
	}
	return e, err
}

func (r *EquipmentRepository) UpdateStatusIf(ctx context.Context, tx pgx.Tx, id uint64, expected, newStatus entities.EquipmentStatus) (*entities.Equipment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	b := psql.Update(equipmentTable).Set("status", string(newStatus))
	return r.conditionalUpdate(ctx, tx, b, id, expected)
}

func (r *EquipmentRepository) MarkAssigned(ctx context.Context, tx pgx.Tx, id, userID, assignmentID uint64) (*entities.Equipment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	b := psql.Update(equipmentTable).
		Set("status", string(entities.EquipmentStatusAssigned)).
		Set("assigned_to", int64(userID)).
		Set("assignment_history", sq.Expr("array_append(assignment_history, ?)", int64(assignmentID)))
	return r.conditionalUpdate(ctx, tx, b, id, entities.EquipmentStatusAvailable)
}

func (r *EquipmentRepository) MarkReturned(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	b := psql.Update(equipmentTable).
		Set("status", string(entities.EquipmentStatusAvailable)).
		Set("assigned_to", nil)
	return r.conditionalUpdate(ctx, tx, b, id, entities.EquipmentStatusAssigned)
}

func (r *EquipmentRepository) DeleteUnlessAssigned(ctx context.Context, id uint64) (bool, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Delete(equipmentTable).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": string(entities.EquipmentStatusAssigned)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build equipment delete: %w", err)
	}
	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete equipment: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
