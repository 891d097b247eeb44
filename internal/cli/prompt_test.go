package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrompterFillsOnlyEmptyValues(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("alice@example.com\nsecret1\n"), &out)

	email, password, preset := "", "", "given"
	require.NoError(t, p.fill(&email, "Email: "))
	require.NoError(t, p.fill(&preset, "Name: "))
	require.NoError(t, p.secret(&password, "Password: "))

	require.Equal(t, "alice@example.com", email)
	require.Equal(t, "secret1", password)
	require.Equal(t, "given", preset)
	require.Equal(t, "Email: Password: ", out.String())
}

func TestPrompterSecretAtEndOfInput(t *testing.T) {
	p := newPrompter(strings.NewReader(""), &bytes.Buffer{})
	var password string
	require.Error(t, p.secret(&password, "Password: "))
}
