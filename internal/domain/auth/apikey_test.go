package auth

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKeys struct {
	byHash map[string]*APIKeyInfo
	err    error
}

func (m *mockKeys) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	info, ok := m.byHash[hash]
	if !ok {
		return nil, ErrUnauthorized
	}
	return info, nil
}

func TestHashKey(t *testing.T) {
	a := HashKey([]byte("pepper"), "secret")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashKey([]byte("pepper"), "secret"))
	assert.NotEqual(t, a, HashKey([]byte("other"), "secret"))
}

func TestAuthenticate(t *testing.T) {
	pepper := []byte("pepper")
	hash := HashKey(pepper, "op-key")
	keys := &mockKeys{byHash: map[string]*APIKeyInfo{
		hash: {ID: "ops", KeyHash: hash, Name: "Operator", Scopes: []string{ScopeOrdersAdmin}},
	}}
	a := NewAuthenticator(keys, pepper)
	ctx := context.Background()

	info, err := a.Authenticate(ctx, "op-key", ScopeOrdersAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ops", info.ID)

	_, err = a.Authenticate(ctx, "op-key", "reports:read")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = a.Authenticate(ctx, "wrong", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = a.Authenticate(ctx, "", ScopeOrdersAdmin)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	a := NewAuthenticator(&mockKeys{err: errors.New("db down")}, nil)

	_, err := a.Authenticate(context.Background(), "key", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}
