package session

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/metrics"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/utils"
)

var (
	ErrSessionNotFound = errors.New("sessão não encontrada")
	ErrSessionExpired  = errors.New("sessão expirada")
)

// DatasetProvider carrega um Dataset novo para cada sessão
type DatasetProvider interface {
	Load(ctx context.Context) (*domain.Dataset, error)
}

// Manager é o contrato usado pela autenticação e pelos middlewares
type Manager interface {
	Open(ctx context.Context, user domain.User) (*Session, error)
	Get(id string) (*Session, error)
	Close(id string) bool
	Sweep() int
	Len() int
}

// Store mantém as sessões num LRU limitado. Quando o limite é atingido a
// sessão menos usada é despejada e deixa de ser autenticada.
type Store struct {
	cache    *lru.Cache
	provider DatasetProvider
	idleTTL  time.Duration
	now      func() time.Time

	// mu protege reason: o callback do LRU não recebe o motivo do despejo
	mu     sync.Mutex
	reason string
}

func NewStore(provider DatasetProvider, maxActive int, idleTTL time.Duration) (*Store, error) {
	s := &Store{
		provider: provider,
		idleTTL:  idleTTL,
		now:      time.Now,
	}

	cache, err := lru.NewWithEvict(maxActive, s.onEvict)
	if err != nil {
		return nil, err
	}
	s.cache = cache

	return s, nil
}

func (s *Store) onEvict(key interface{}, value interface{}) {
	sess, ok := value.(*Session)
	if !ok {
		return
	}
	sess.invalidate()

	reason := s.reason
	if reason == "" {
		reason = metrics.ReasonEvicted
		log.L.WithField("session_id", key).Warn("Limite de sessões atingido, sessão mais antiga despejada")
	}
	metrics.SessionClosed(reason)
}

// remove tira a sessão do LRU registrando o motivo
func (s *Store) remove(id string, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reason = reason
	defer func() { s.reason = "" }()
	return s.cache.Remove(id)
}

// Open carrega o Dataset da sessão e a registra como autenticada
func (s *Store) Open(ctx context.Context, user domain.User) (*Session, error) {
	id, err := utils.GenerateSessionID()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dataset, err := s.provider.Load(ctx)
	metrics.ObserveDatasetLoad(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	sess := NewAuthenticated(id, user, dataset, s.now())
	s.mu.Lock()
	metrics.SessionOpened()
	s.cache.Add(id, sess)
	s.mu.Unlock()

	log.ForContext(ctx).WithFields(log.Fields{
		"session_id": id,
		"user_id":    user.ID,
	}).Infof("Sessão aberta para %s", user.Username)

	return sess, nil
}

// Get retorna a sessão se ainda estiver ativa e renova o tempo de inatividade
func (s *Store) Get(id string) (*Session, error) {
	value, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	sess := value.(*Session)
	now := s.now()
	if s.expired(sess, now) {
		s.remove(id, metrics.ReasonExpired)
		return nil, ErrSessionExpired
	}

	sess.touch(now)
	return sess, nil
}

// Close encerra a sessão (logout). Retorna falso se ela não existia.
func (s *Store) Close(id string) bool {
	return s.remove(id, metrics.ReasonLogout)
}

// Sweep remove as sessões inativas há mais que o TTL e retorna quantas saíram
func (s *Store) Sweep() int {
	now := s.now()
	removed := 0

	for _, key := range s.cache.Keys() {
		value, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if s.expired(value.(*Session), now) {
			if s.remove(key.(string), metrics.ReasonExpired) {
				removed++
			}
		}
	}

	return removed
}

func (s *Store) Len() int {
	return s.cache.Len()
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return s.idleTTL > 0 && sess.idleSince(now) > s.idleTTL
}
