package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleClaimRoundTrip(t *testing.T) {
	roles := []Role{{ID: 1, Name: RoleConsumer}, {ID: 3, Name: RoleStoreOwner}}
	claim := JoinRoleNames(roles)
	assert.Equal(t, "CONSUMER,STORE_OWNER", claim)
	assert.Equal(t, []string{"CONSUMER", "STORE_OWNER"}, SplitRoleClaim(claim))
}

func TestSplitRoleClaimEdgeCases(t *testing.T) {
	assert.Empty(t, SplitRoleClaim(""))
	assert.Empty(t, SplitRoleClaim("  "))
	assert.Equal(t, []string{"ADMIN"}, SplitRoleClaim(" ADMIN "))
	assert.Equal(t, []string{"A", "B"}, SplitRoleClaim("A,,B,"))
}

func TestCachedUserDataOmitsPasswordHash(t *testing.T) {
	first := "Alice"
	u := User{
		ID:           uuid.New(),
		Email:        "a@x.com",
		Username:     "alice",
		PasswordHash: "$2a$10$secret",
		FirstName:    &first,
		Enabled:      true,
	}
	data := NewCachedUserData(u, []Role{{ID: 1, Name: RoleConsumer}})

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"roles":["CONSUMER"]`)
	assert.Equal(t, []string{RoleConsumer}, data.Roles)
}
