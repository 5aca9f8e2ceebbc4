package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/rental-listing/internal/kv"
	"github.com/iliyamo/rental-listing/internal/model"
)

// maxUpdateAttempts bounds the compare-and-swap retry loop of Update.
const maxUpdateAttempts = 5

// UserRepo reads and writes `user:<userId>` records.
type UserRepo struct{ Store kv.Store }

func NewUserRepo(s kv.Store) *UserRepo { return &UserRepo{Store: s} }

// Create writes the user record. There is no uniqueness check here: the
// identity provider already refused duplicate login handles.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	return kv.SetJSON(ctx, r.Store, userKey(u.UserID), u)
}

// Get fetches a user by id.
func (r *UserRepo) Get(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := kv.GetJSON(ctx, r.Store, userKey(userID), &u)
	if errors.Is(err, kv.ErrNotFound) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Update applies mutate to the stored user and writes it back only if no
// other writer changed the record in between. On a lost race the record is
// re-read and mutate is applied again to the fresh copy.
func (r *UserRepo) Update(ctx context.Context, userID string, mutate func(*model.User)) (model.User, error) {
	key := userKey(userID)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		raw, err := r.Store.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		if err != nil {
			return model.User{}, err
		}
		var u model.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return model.User{}, fmt.Errorf("decode user %s: %w", userID, err)
		}
		joined := u.JoinedDate
		mutate(&u)
		// userId and joinedDate are immutable.
		u.UserID = userID
		u.JoinedDate = joined
		next, err := json.Marshal(u)
		if err != nil {
			return model.User{}, err
		}
		err = r.Store.CompareAndSwap(ctx, key, raw, next)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, kv.ErrConflict) {
			return model.User{}, err
		}
	}
	return model.User{}, ErrConflict
}

// UpdateProfile merges the non-empty fields of upd over the stored user.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (model.User, error) {
	return r.Update(ctx, userID, upd.Apply)
}

// SetProfilePicture stores the avatar URL on the user record.
func (r *UserRepo) SetProfilePicture(ctx context.Context, userID, url string) (model.User, error) {
	return r.Update(ctx, userID, func(u *model.User) {
		u.ProfilePicture = &url
	})
}
