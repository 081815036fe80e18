package repositories

import (
	"context"
	"fmt"

	"equipment-system/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const statusHistoryTable = "equipment_status_history"
const statusHistoryFields = "id, equipment_id, equipment_name, old_status, new_status, tx_id, changed_at"

type StatusHistoryRepositoryInterface interface {
	Create(ctx context.Context, h *entities.StatusHistory) error
	ListByEquipment(ctx context.Context, equipmentID uint64) ([]entities.StatusHistory, error)
}

type StatusHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewStatusHistoryRepository(storage *pgxpool.Pool) StatusHistoryRepositoryInterface {
	return &StatusHistoryRepository{storage: storage}
}

func (r *StatusHistoryRepository) Create(ctx context.Context, h *entities.StatusHistory) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(statusHistoryTable).
		Columns("equipment_id", "equipment_name", "old_status", "new_status", "tx_id", "changed_at").
		Values(h.EquipmentID, h.EquipmentName, string(h.OldStatus), string(h.NewStatus), h.TxID, h.ChangedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build status history insert: %w", err)
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *StatusHistoryRepository) ListByEquipment(ctx context.Context, equipmentID uint64) ([]entities.StatusHistory, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(statusHistoryFields).
		From(statusHistoryTable).
		Where(sq.Eq{"equipment_id": equipmentID}).
		OrderBy("changed_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status history list: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	items := make([]entities.StatusHistory, 0)
	for rows.Next() {
		var h entities.StatusHistory
		if err := rows.Scan(&h.ID, &h.EquipmentID, &h.EquipmentName, &h.OldStatus, &h.NewStatus, &h.TxID, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}
