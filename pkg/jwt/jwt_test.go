package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/pkg/jwt"
)

func TestGenerateParse(t *testing.T) {
	token, err := jwt.Generate("secreto", "actor-1", "org-1", "agent", "cobra", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("secreto", token)
	require.NoError(t, err)
	assert.Equal(t, "actor-1", claims.ActorID)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, "agent", claims.Role)
}

func TestParse_Rechazos(t *testing.T) {
	token, err := jwt.Generate("secreto", "actor-1", "org-1", "", "cobra", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", token)
	assert.Error(t, err, "firma incorrecta")

	expired, err := jwt.Generate("secreto", "actor-1", "org-1", "", "cobra", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("secreto", expired)
	assert.Error(t, err, "token expirado")

	noOrg, err := jwt.Generate("secreto", "actor-1", "", "", "cobra", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("secreto", noOrg)
	assert.Error(t, err, "sin organización")

	_, err = jwt.Parse("", token)
	assert.Error(t, err)
}
