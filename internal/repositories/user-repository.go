package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"equipment-system/internal/entities"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userTable = "users"
const userFields = "id, name, email, password, role, is_active, created_at, updated_at"

var userAllowedSortFields = map[string]bool{"id": true, "name": true, "email": true, "created_at": true, "updated_at": true}

type UserRepositoryInterface interface {
	GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error)
	FindUserByID(ctx context.Context, id uint64) (*entities.User, error)
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	CreateUser(ctx context.Context, user *entities.User) (*entities.User, error)
	UpdateUser(ctx context.Context, user *entities.User) (*entities.User, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	DeleteUser(ctx context.Context, id uint64) error
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	var where sq.Sqlizer = sq.Expr("1=1")
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		where = sq.Or{sq.ILike{"name": like}, sq.ILike{"email": like}}
	}

	countQuery, countArgs, err := psql.Select("COUNT(id)").From(userTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build user count: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	if total == 0 {
		return []entities.User{}, 0, nil
	}

	selectBuilder := psql.Select(userFields).From(userTable).Where(where)
	sorted := false
	for field, direction := range filter.Sort {
		if !userAllowedSortFields[field] {
			continue
		}
		dir := "ASC"
		if strings.EqualFold(direction, "desc") {
			dir = "DESC"
		}
		selectBuilder = selectBuilder.OrderBy(field + " " + dir)
		sorted = true
	}
	if !sorted {
		selectBuilder = selectBuilder.OrderBy("id DESC")
	}
	if filter.Limit > 0 {
		selectBuilder = selectBuilder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		selectBuilder = selectBuilder.Offset(uint64(filter.Offset))
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build user list: %w", err)
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) findOne(ctx context.Context, where sq.Eq) (*entities.User, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Select(userFields).From(userTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user select: %w", err)
	}
	return scanUser(r.storage.QueryRow(ctx, query, args...))
}

func (r *UserRepository) FindUserByID(ctx context.Context, id uint64) (*entities.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, sq.Eq{"LOWER(email)": strings.ToLower(email)})
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entities.User) (*entities.User, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Insert(userTable).
		Columns("name", "email", "password", "role", "is_active").
		Values(user.Name, strings.ToLower(user.Email), user.Password, string(user.Role), user.IsActive).
		Suffix("RETURNING " + userFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user insert: %w", err)
	}
	created, err := scanUser(r.storage.QueryRow(ctx, query, args...))
	if err != nil && isUniqueViolation(err) {
		return nil, apperrors.ErrEmailTaken
	}
	return created, err
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *entities.User) (*entities.User, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(userTable).
		Set("name", user.Name).
		Set("email", strings.ToLower(user.Email)).
		Set("role", string(user.Role)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": user.ID}).
		Suffix("RETURNING " + userFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user update: %w", err)
	}
	updated, err := scanUser(r.storage.QueryRow(ctx, query, args...))
	if err != nil && isUniqueViolation(err) {
		return nil, apperrors.ErrEmailTaken
	}
	return updated, err
}

func (r *UserRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Update(userTable).
		Set("is_active", active).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build user activation: %w", err)
	}
	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id uint64) error {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	query, args, err := psql.Delete(userTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build user delete: %w", err)
	}
	result, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		// users still referenced by equipment or assignments
		if isForeignKeyViolation(err) {
			return apperrors.NewConflictError("user %d still has equipment or assignment records", id)
		}
		return err
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
