package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *InMemoryStore) {
	t.Helper()
	st := NewInMemoryStore()
	fixed := time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)
	svc, err := NewService(st, &plainHasher{}, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	return svc, st
}

func TestService_RegisterNormalizesLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  NewUser123 ", "Qwerty123456")
	require.NoError(t, err)
	require.NotNil(t, u.Username)
	assert.Equal(t, "newuser123", *u.Username)

	taken, err := svc.LoginTaken(ctx, "NEWUSER123")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestService_ConcurrentRegistrationSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	logins := []string{"Racer", " racer", "RACER ", "racer"}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for _, l := range logins {
		wg.Add(1)
		go func(login string) {
			defer wg.Done()
			_, err := svc.Register(ctx, login, "Qwerty123456")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(l)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, len(logins)-1, conflicts)
}

func TestService_UpdateProfileNormalizes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "ivan", "Qwerty123456")
	require.NoError(t, err)

	bd := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	got, err := svc.UpdateProfile(ctx, u.ID, ProfileInput{
		Name:      "иван--ПЕТР",
		LastName:  "  сидоров ",
		Gender:    "male",
		BirthDate: &bd,
	})
	require.NoError(t, err)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Иван-Петр", *got.Name)
	assert.Equal(t, "Сидоров", *got.LastName)
	assert.Nil(t, got.MiddleName)
	assert.Equal(t, "male", *got.Gender)
	assert.True(t, got.BirthDate.Equal(bd))

	_, err = svc.UpdateProfile(ctx, u.ID, ProfileInput{})
	assert.True(t, IsInvalidInput(err))
}

func TestService_GetDeactivated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "gone", "Qwerty123456")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, u.ID))

	got, err := svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, ErrDeactivated)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Get(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(svc.Deactivate(ctx, u.ID)))
}

func TestService_Deactivated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "newuser123", "Qwerty123456")
	require.NoError(t, err)

	gone, err := svc.Deactivated(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, gone)

	require.NoError(t, svc.Deactivate(ctx, u.ID))
	gone, err = svc.Deactivated(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, gone)

	gone, err = svc.Deactivated(ctx, "01HZNOSUCHUSER000000000000")
	require.NoError(t, err)
	assert.True(t, gone, "a missing user holds no sessions")
}
