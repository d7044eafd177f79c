package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/database/postgres"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
)

const usersTable = "users"

var ErrDuplicateUsername = errors.New("username já cadastrado")

// UserRepository é a fonte de credenciais usada no login.
// Usuário inexistente retorna (nil, nil).
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type PostgresUserRepository struct {
	db postgres.Queryer
}

func NewPostgresUserRepository(db postgres.Queryer) *PostgresUserRepository {
	return &PostgresUserRepository{
		db: db,
	}
}

var userColumns = []string{"id", "username", "name", "email", "password_hash", "role_id", "active", "created_at"}

func selectUserByUsername(username string) (string, []any, error) {
	return squirrel.
		Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"username": strings.TrimSpace(username)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func insertUser(user *domain.User) (string, []any, error) {
	return squirrel.
		Insert(usersTable).
		Columns("username", "name", "email", "password_hash", "role_id", "active").
		Values(user.Username, user.Name, user.Email, user.PasswordHash, user.RoleID, user.Active).
		Suffix("ON CONFLICT (username) DO NOTHING RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query, args, err := selectUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("erro ao construir consulta: %w", err)
	}

	var user domain.User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.RoleID,
		&user.Active,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar usuário: %w", err)
	}

	return &user, nil
}

// CreateUser é usado pelo script de carga de usuários
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query, args, err := insertUser(user)
	if err != nil {
		return nil, fmt.Errorf("erro ao construir consulta: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicateUsername
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao inserir usuário: %w", err)
	}

	return user, nil
}
