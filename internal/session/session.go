// Package session guarda as sessões de dashboard abertas. Cada sessão carrega
// o seu próprio Dataset no login e só é considerada autenticada até ser encerrada.
package session

import (
	"sync"
	"time"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
)

type Session struct {
	ID        string
	UserID    int
	Username  string
	Name      string
	RoleID    int
	CreatedAt time.Time

	dataset *domain.Dataset

	mu            sync.RWMutex
	authenticated bool
	lastSeen      time.Time
}

// Authenticated é a capacidade exigida pelos cálculos de dashboard.
// Sessão nula ou encerrada não está autenticada.
func (s *Session) Authenticated() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Dataset retorna as tabelas carregadas para esta sessão
func (s *Session) Dataset() *domain.Dataset {
	if s == nil {
		return nil
	}
	return s.dataset
}

func (s *Session) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.RoleID == domain.RoleAdmin
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(s.LastSeen())
}

// invalidate encerra a sessão; quem ainda tiver o ponteiro perde a capacidade
func (s *Session) invalidate() {
	s.mu.Lock()
	s.authenticated = false
	s.mu.Unlock()
}

// NewAuthenticated cria uma sessão já autenticada sobre um Dataset.
// Usado pelo Store e por testes que não precisam de login.
func NewAuthenticated(id string, user domain.User, dataset *domain.Dataset, now time.Time) *Session {
	return &Session{
		ID:            id,
		UserID:        user.ID,
		Username:      user.Username,
		Name:          user.Name,
		RoleID:        user.RoleID,
		CreatedAt:     now,
		dataset:       dataset,
		authenticated: true,
		lastSeen:      now,
	}
}
