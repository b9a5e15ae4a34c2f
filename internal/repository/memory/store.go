// Package memory содержит in-memory реализацию хранилищ для локального запуска и тестов.
// Все операции сериализуются одним мьютексом хранилища; транзакция держит его
// до завершения и откатывает изменения по снимку состояния.
package memory

import (
	"context"
	"sync"

	"github.com/aidar/teamhub/internal/domain"
)

type txKey struct{}

type teamRecord struct {
	team    domain.Team
	members []string
}

// Store содержит состояние всех in-memory репозиториев
type Store struct {
	mu sync.Mutex

	users       map[string]domain.User
	teams       map[string]*teamRecord
	invitations map[string]domain.Invitation
	invOrder    []string
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		teams:       make(map[string]*teamRecord),
		invitations: make(map[string]domain.Invitation),
	}
}

// RunInTx выполняет fn атомарно; при ошибке состояние восстанавливается
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(state)
		return err
	}
	return nil
}

// Users возвращает репозиторий пользователей
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Teams возвращает репозиторий команд
func (s *Store) Teams() *TeamRepository {
	return &TeamRepository{s: s}
}

// Invitations возвращает репозиторий приглашений
func (s *Store) Invitations() *InvitationRepository {
	return &InvitationRepository{s: s}
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock захватывает мьютекс, если вызов не внутри транзакции этого хранилища
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type storeState struct {
	users       map[string]domain.User
	teams       map[string]*teamRecord
	invitations map[string]domain.Invitation
	invOrder    []string
}

func (s *Store) clone() storeState {
	snap := storeState{
		users:       make(map[string]domain.User, len(s.users)),
		teams:       make(map[string]*teamRecord, len(s.teams)),
		invitations: make(map[string]domain.Invitation, len(s.invitations)),
		invOrder:    append([]string(nil), s.invOrder...),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.teams {
		snap.teams[k] = &teamRecord{team: v.team, members: append([]string(nil), v.members...)}
	}
	for k, v := range s.invitations {
		snap.invitations[k] = v
	}
	return snap
}

func (s *Store) restore(snap storeState) {
	s.users = snap.users
	s.teams = snap.teams
	s.invitations = snap.invitations
	s.invOrder = snap.invOrder
}

// teamOf возвращает запись команды, в которой состоит пользователь
func (s *Store) teamOf(userID string) *teamRecord {
	for _, rec := range s.teams {
		for _, id := range rec.members {
			if id == userID {
				return rec
			}
		}
	}
	return nil
}

func (rec *teamRecord) snapshot() *domain.Team {
	team := rec.team
	team.MemberIDs = append([]string(nil), rec.members...)
	return &team
}
