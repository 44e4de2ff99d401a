package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateULIDIsPrefixedAndOrdered(t *testing.T) {
	a := GenerateULID("TXN")
	b := GenerateULID("TXN")

	require.True(t, strings.HasPrefix(a, "TXN_"))
	assert.Len(t, a, len("TXN_")+26)
	assert.Less(t, a, b)
}

func TestNewUUID(t *testing.T) {
	_, err := uuid.Parse(NewUUID())
	assert.NoError(t, err)
}
