package env

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineID(t *testing.T) {
	id := MachineID()
	require.NotEmpty(t, id)
	require.False(t, strings.Contains(id, "/"), "id is used in topics")
	require.Equal(t, id, MachineID())
}
