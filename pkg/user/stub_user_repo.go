package user

import (
	"context"
)

type StubUserRepository struct {
	data map[int]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{data: map[int]User{}}
}

func (s *StubUserRepository) Add(user User) {
	s.data[user.Id] = user
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	for _, user := range s.data {
		if user.Uid == uid {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) GetUsersByIds(ctx context.Context, tenantId int, ids []int) ([]User, error) {
	users := make([]User, 0, len(ids))
	for _, id := range ids {
		user, ok := s.data[id]
		if ok && user.TenantId == tenantId {
			users = append(users, user)
		}
	}
	return users, nil
}
