package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("01PROFILE%04d", g.n), nil
}

type memStore struct {
	profiles map[string]*Profile // by id
}

func newMemStore() *memStore {
	return &memStore{profiles: map[string]*Profile{}}
}

func (m *memStore) GetByID(_ context.Context, id string) (*Profile, error) {
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*Profile, error) {
	for _, p := range m.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, p *Profile) error {
	for _, e := range m.profiles {
		if e.Email == p.Email {
			return errors.New("Error 1062 (23000): Duplicate entry")
		}
	}
	cp := *p
	cp.CreatedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m.profiles[p.ProfileID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, id string, fullName, phone, siteULID *string) (int64, error) {
	if fullName == nil && phone == nil && siteULID == nil {
		return 0, nil
	}
	p, ok := m.profiles[id]
	if !ok {
		return 0, nil
	}
	if fullName != nil {
		p.FullName = sql.NullString{String: *fullName, Valid: true}
	}
	if phone != nil {
		p.Phone = sql.NullString{String: *phone, Valid: true}
	}
	if siteULID != nil {
		p.SiteULID = sql.NullString{String: *siteULID, Valid: true}
	}
	return 1, nil
}

// racingStore loses every Create: another sign-in inserts the same
// email first, the way a concurrent verification would.
type racingStore struct {
	*memStore
	winner Profile
}

func (s *racingStore) Create(_ context.Context, _ *Profile) error {
	cp := s.winner
	s.profiles[cp.ProfileID] = &cp
	return errors.New("Error 1062 (23000): Duplicate entry")
}

func strptr(s string) *string { return &s }

func TestEnsureProfileCreatesLazily(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewServiceWithStore(store, &seqIDGen{})

	p, err := svc.EnsureProfile(ctx, "  Pat@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "01PROFILE0001", p.ProfileID)
	assert.Equal(t, "pat@example.com", p.Email)
	assert.Equal(t, RoleWorker, p.Role)
	assert.False(t, p.Complete())

	stored, err := store.GetByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, p.ProfileID, stored.ProfileID)
}

func TestEnsureProfileReturnsExisting(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewServiceWithStore(store, &seqIDGen{})

	first, err := svc.EnsureProfile(ctx, "pat@example.com")
	require.NoError(t, err)

	second, err := svc.EnsureProfile(ctx, "PAT@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, first.ProfileID, second.ProfileID)
	require.Len(t, store.profiles, 1)
}

func TestEnsureProfileCreateRaceFallsBackToWinner(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{
		memStore: newMemStore(),
		winner: Profile{
			ProfileID: "01WINNER",
			Email:     "pat@example.com",
			Role:      RoleWorker,
		},
	}
	svc := NewServiceWithStore(store, &seqIDGen{})

	p, err := svc.EnsureProfile(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, "01WINNER", p.ProfileID)
}

func TestEnsureProfileRequiresEmail(t *testing.T) {
	svc := NewServiceWithStore(newMemStore(), &seqIDGen{})

	_, err := svc.EnsureProfile(context.Background(), "   ")
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInvalidArgument, api.Code)
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewServiceWithStore(store, &seqIDGen{})

	p, err := svc.EnsureProfile(ctx, "pat@example.com")
	require.NoError(t, err)

	res, err := svc.Update(ctx, p.ProfileID, UpdateProfileRequest{Phone: strptr("+15550100")})
	require.NoError(t, err)
	require.NotNil(t, res.Phone)
	assert.Equal(t, "+15550100", *res.Phone)
	assert.Nil(t, res.FullName)
	assert.False(t, res.Complete)

	res, err = svc.Update(ctx, p.ProfileID, UpdateProfileRequest{
		FullName: strptr("Pat Doe"),
		SiteID:   strptr("01SITEA"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.FullName)
	assert.Equal(t, "Pat Doe", *res.FullName)
	require.NotNil(t, res.SiteID)
	assert.Equal(t, "01SITEA", *res.SiteID)
	assert.True(t, res.Complete)
}

func TestUpdateRejectsBlankValues(t *testing.T) {
	ctx := context.Background()
	svc := NewServiceWithStore(newMemStore(), &seqIDGen{})
	p, err := svc.EnsureProfile(ctx, "pat@example.com")
	require.NoError(t, err)

	for _, req := range []UpdateProfileRequest{
		{FullName: strptr("  ")},
		{Phone: strptr("")},
	} {
		_, err := svc.Update(ctx, p.ProfileID, req)
		var api *APIError
		require.ErrorAs(t, err, &api)
		assert.Equal(t, CodeInvalidArgument, api.Code)
	}
}

func TestUpdateEmptyRequestReReads(t *testing.T) {
	ctx := context.Background()
	svc := NewServiceWithStore(newMemStore(), &seqIDGen{})
	p, err := svc.EnsureProfile(ctx, "pat@example.com")
	require.NoError(t, err)

	// Nothing to set: zero rows touched, but the row exists.
	res, err := svc.Update(ctx, p.ProfileID, UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, p.ProfileID, res.ProfileID)
}

func TestUpdateMissingProfile(t *testing.T) {
	svc := NewServiceWithStore(newMemStore(), &seqIDGen{})

	_, err := svc.Update(context.Background(), "01NOBODY", UpdateProfileRequest{Phone: strptr("+15550100")})
	var api *APIError
	require.ErrorAs(t, err, &api)
	assert.Equal(t, CodeNotFound, api.Code)
}
