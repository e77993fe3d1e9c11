package service

import (
	"context"
	"testing"

	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice")
	_ = env.newUser(t, "bob")

	p, err := env.Profiles.GetProfile(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice", p.Username)

	_, err = env.Profiles.Update(ctx, alice, UpdateProfileInput{Username: strPtr("bob")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.Profiles.Update(ctx, alice, UpdateProfileInput{Username: strPtr("a!")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.Profiles.Update(ctx, alice, UpdateProfileInput{AvatarURL: strPtr("javascript:alert(1)")})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := env.Profiles.Update(ctx, alice, UpdateProfileInput{
		Username: strPtr("alice"),
		FullName: strPtr("Alice Liddell"),
		Phone:    strPtr("+1 555 0100"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FullName)
	assert.Equal(t, "Alice Liddell", *updated.FullName)

	p, err = env.Profiles.GetProfile(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, p.FullName)
	assert.Equal(t, "Alice Liddell", *p.FullName)

	cleared, err := env.Profiles.Update(ctx, alice, UpdateProfileInput{FullName: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.FullName)

	_, err = env.Profiles.Update(ctx, uuid.New(), UpdateProfileInput{FullName: strPtr("Ghost")})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, env.Events.Events(events.TopicUser), 2)
}

func TestProfileLookups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.newUser(t, "alice")
	_ = env.newUser(t, "bob")

	ok, err := env.Profiles.IsUsernameAvailable(ctx, "alice", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.Profiles.IsUsernameAvailable(ctx, "alice", alice)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = env.Profiles.IsUsernameAvailable(ctx, "x", uuid.Nil)
	assert.ErrorIs(t, err, ErrValidation)

	p, err := env.Profiles.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, p)

	p, err = env.Profiles.GetByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Nil(t, p)

	missing, err := env.Profiles.GetProfile(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	total, items, err := env.Profiles.List(ctx, 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 1)
}
