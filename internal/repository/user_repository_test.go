package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/iliyamo/rental-listing/internal/kv"
	"github.com/iliyamo/rental-listing/internal/model"
)

type UserRepoSuite struct {
	suite.Suite
	store *kv.Memory
	repo  *UserRepo
	ctx   context.Context
}

func TestUserRepoSuite(t *testing.T) {
	suite.Run(t, new(UserRepoSuite))
}

func (s *UserRepoSuite) SetupTest() {
	s.store = kv.NewMemory()
	s.repo = NewUserRepo(s.store)
	s.ctx = context.Background()
}

func sampleUser(id string) model.User {
	return model.User{
		UserID:      id,
		Username:    "alice123",
		Location:    "Dhaka",
		PhoneNumber: "01711112222",
		NIDNumber:   "1234567890",
		UserType:    model.UserTypeRenter,
		JoinedDate:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func ptr(s string) *string { return &s }

func (s *UserRepoSuite) TestCreateAndGet() {
	s.Run("returns the stored user", func() {
		u := sampleUser("u1")
		s.Require().NoError(s.repo.Create(s.ctx, u))

		got, err := s.repo.Get(s.ctx, "u1")
		s.Require().NoError(err)
		s.Equal(u, got)
	})

	s.Run("stores the record under user:<id>", func() {
		raw, err := s.store.Get(s.ctx, "user:u1")
		s.Require().NoError(err)
		var m map[string]any
		s.Require().NoError(json.Unmarshal(raw, &m))
		s.Equal("alice123", m["username"])
		s.Contains(m, "profilePicture")
		s.Nil(m["profilePicture"])
	})

	s.Run("missing user returns ErrNotFound", func() {
		_, err := s.repo.Get(s.ctx, "ghost")
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("two reads without an update are identical", func() {
		first, err := s.repo.Get(s.ctx, "u1")
		s.Require().NoError(err)
		second, err := s.repo.Get(s.ctx, "u1")
		s.Require().NoError(err)

		a, _ := json.Marshal(first)
		b, _ := json.Marshal(second)
		s.JSONEq(string(a), string(b))
	})
}

func (s *UserRepoSuite) TestUpdateProfile() {
	s.Require().NoError(s.repo.Create(s.ctx, sampleUser("u2")))

	s.Run("merges provided fields and keeps the rest", func() {
		got, err := s.repo.UpdateProfile(s.ctx, "u2", model.ProfileUpdate{
			Location: ptr("Chittagong"),
			UserType: ptr("owner"),
		})
		s.Require().NoError(err)
		s.Equal("Chittagong", got.Location)
		s.Equal(model.UserTypeOwner, got.UserType)
		s.Equal("01711112222", got.PhoneNumber)
		s.Equal("1234567890", got.NIDNumber)
	})

	s.Run("empty strings keep the stored value", func() {
		got, err := s.repo.UpdateProfile(s.ctx, "u2", model.ProfileUpdate{
			Location:    ptr(""),
			PhoneNumber: ptr(""),
		})
		s.Require().NoError(err)
		s.Equal("Chittagong", got.Location)
		s.Equal("01711112222", got.PhoneNumber)
	})

	s.Run("persists the merged record", func() {
		got, err := s.repo.Get(s.ctx, "u2")
		s.Require().NoError(err)
		s.Equal("Chittagong", got.Location)
	})

	s.Run("missing user returns ErrNotFound", func() {
		_, err := s.repo.UpdateProfile(s.ctx, "ghost", model.ProfileUpdate{Location: ptr("x")})
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *UserRepoSuite) TestUpdateKeepsImmutableFields() {
	u := sampleUser("u3")
	s.Require().NoError(s.repo.Create(s.ctx, u))

	got, err := s.repo.Update(s.ctx, "u3", func(m *model.User) {
		m.UserID = "hijack"
		m.JoinedDate = time.Now()
		m.Username = "renamed"
	})
	s.Require().NoError(err)
	s.Equal("u3", got.UserID)
	s.True(u.JoinedDate.Equal(got.JoinedDate))
	s.Equal("renamed", got.Username)

	_, err = s.repo.Get(s.ctx, "hijack")
	s.ErrorIs(err, ErrNotFound)
}

func (s *UserRepoSuite) TestSetProfilePicture() {
	s.Require().NoError(s.repo.Create(s.ctx, sampleUser("u4")))

	got, err := s.repo.SetProfilePicture(s.ctx, "u4", "https://cdn.example/u4.png")
	s.Require().NoError(err)
	s.Require().NotNil(got.ProfilePicture)
	s.Equal("https://cdn.example/u4.png", *got.ProfilePicture)
	s.Equal("Dhaka", got.Location)
}

// TestReadModifyWriteLosesUpdates shows the race of a plain get-then-set
// profile edit: two writers with disjoint fields both read the same version
// and the second write erases the first one's change.
func (s *UserRepoSuite) TestReadModifyWriteLosesUpdates() {
	s.Require().NoError(s.repo.Create(s.ctx, sampleUser("u5")))

	var first, second model.User
	s.Require().NoError(kv.GetJSON(s.ctx, s.store, "user:u5", &first))
	s.Require().NoError(kv.GetJSON(s.ctx, s.store, "user:u5", &second))

	first.Location = "Chittagong"
	second.PhoneNumber = "01899998888"
	s.Require().NoError(kv.SetJSON(s.ctx, s.store, "user:u5", first))
	s.Require().NoError(kv.SetJSON(s.ctx, s.store, "user:u5", second))

	got, err := s.repo.Get(s.ctx, "u5")
	s.Require().NoError(err)
	s.Equal("01899998888", got.PhoneNumber)
	s.Equal("Dhaka", got.Location, "the first writer's change is lost")
}

// interleavingStore runs a competing write right before the first
// CompareAndSwap, forcing the caller to lose the race once.
type interleavingStore struct {
	*kv.Memory
	once    sync.Once
	compete func()
}

func (s *interleavingStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte) error {
	s.once.Do(s.compete)
	return s.Memory.CompareAndSwap(ctx, key, prev, next)
}

func (s *UserRepoSuite) TestUpdateSurvivesInterleavedWriter() {
	mem := kv.NewMemory()
	other := NewUserRepo(mem)
	s.Require().NoError(other.Create(s.ctx, sampleUser("u6")))

	racing := &interleavingStore{Memory: mem}
	racing.compete = func() {
		_, err := other.UpdateProfile(s.ctx, "u6", model.ProfileUpdate{PhoneNumber: ptr("01899998888")})
		s.Require().NoError(err)
	}
	repo := NewUserRepo(racing)

	got, err := repo.UpdateProfile(s.ctx, "u6", model.ProfileUpdate{Location: ptr("Chittagong")})
	s.Require().NoError(err)
	s.Equal("Chittagong", got.Location)
	s.Equal("01899998888", got.PhoneNumber)

	stored, err := other.Get(s.ctx, "u6")
	s.Require().NoError(err)
	s.Equal("Chittagong", stored.Location)
	s.Equal("01899998888", stored.PhoneNumber)
}

func (s *UserRepoSuite) TestConcurrentDisjointUpdatesAreAllKept() {
	s.Require().NoError(s.repo.Create(s.ctx, sampleUser("u7")))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.repo.UpdateProfile(s.ctx, "u7", model.ProfileUpdate{Location: ptr("Sylhet")})
		s.NoError(err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.repo.UpdateProfile(s.ctx, "u7", model.ProfileUpdate{NIDNumber: ptr("9999999999")})
		s.NoError(err)
	}()
	wg.Wait()

	got, err := s.repo.Get(s.ctx, "u7")
	s.Require().NoError(err)
	s.Equal("Sylhet", got.Location)
	s.Equal("9999999999", got.NIDNumber)
}

// alwaysConflict never lets a swap through.
type alwaysConflict struct{ *kv.Memory }

func (alwaysConflict) CompareAndSwap(context.Context, string, []byte, []byte) error {
	return kv.ErrConflict
}

func (s *UserRepoSuite) TestUpdateGivesUpAfterRepeatedConflicts() {
	mem := kv.NewMemory()
	s.Require().NoError(NewUserRepo(mem).Create(s.ctx, sampleUser("u8")))

	_, err := NewUserRepo(alwaysConflict{mem}).UpdateProfile(s.ctx, "u8", model.ProfileUpdate{Location: ptr("x")})
	s.Require().ErrorIs(err, ErrConflict)
}
