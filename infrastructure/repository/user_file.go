package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"gopkg.in/yaml.v3"
)

type credentialsFile struct {
	Users []fileUser `yaml:"users"`
}

type fileUser struct {
	ID           int    `yaml:"id"`
	Username     string `yaml:"username"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
	// ausente no arquivo significa ativo
	Active *bool `yaml:"active"`
}

func (u fileUser) toDomain() (*domain.User, error) {
	roleID, err := parseRole(u.Role)
	if err != nil {
		return nil, err
	}

	active := true
	if u.Active != nil {
		active = *u.Active
	}

	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		RoleID:       roleID,
		Active:       active,
	}, nil
}

func parseRole(role string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin":
		return domain.RoleAdmin, nil
	case "", "viewer":
		return domain.RoleViewer, nil
	default:
		return 0, fmt.Errorf("perfil desconhecido: %q", role)
	}
}

// FileUserRepository lê as credenciais de um YAML uma única vez na subida
type FileUserRepository struct {
	users map[string]domain.User
}

func NewFileUserRepository(path string) (*FileUserRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler arquivo de credenciais %s: %w", path, err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("arquivo de credenciais inválido %s: %w", path, err)
	}

	users := make(map[string]domain.User, len(file.Users))
	for i, fu := range file.Users {
		username := strings.TrimSpace(fu.Username)
		if username == "" {
			return nil, fmt.Errorf("usuário %d sem username", i+1)
		}
		if fu.PasswordHash == "" {
			return nil, fmt.Errorf("usuário %s sem password_hash", username)
		}
		if _, exists := users[username]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUsername, username)
		}

		user, err := fu.toDomain()
		if err != nil {
			return nil, fmt.Errorf("usuário %s: %w", username, err)
		}
		user.Username = username
		if user.ID == 0 {
			user.ID = i + 1
		}
		users[username] = *user
	}

	return &FileUserRepository{users: users}, nil
}

func (r *FileUserRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := r.users[strings.TrimSpace(username)]
	if !ok {
		return nil, nil
	}
	// cópia para o chamador não alterar o cadastro
	return &user, nil
}

// Users devolve todos os usuários em ordem de ID
func (r *FileUserRepository) Users() []domain.User {
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (r *FileUserRepository) Len() int {
	return len(r.users)
}
