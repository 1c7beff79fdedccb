package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTenantID(t *testing.T) {
	parsed, err := ParseTenantID("a3bb189e-8bf9-3888-9912-ace4e6543002")
	require.NoError(t, err)
	assert.Equal(t, "a3bb189e-8bf9-3888-9912-ace4e6543002", parsed.String())

	_, err = ParseTenantID("")
	assert.Error(t, err)

	_, err = ParseTenantID("not-a-uuid")
	assert.Error(t, err)
}

func TestTenantIDJSONRoundTrip(t *testing.T) {
	parsed, err := ParseTenantID("a3bb189e-8bf9-3888-9912-ace4e6543002")
	require.NoError(t, err)

	raw, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, `"a3bb189e-8bf9-3888-9912-ace4e6543002"`, string(raw))

	var back TenantID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, parsed, back)
}

func TestIsNil(t *testing.T) {
	assert.True(t, TenantID{}.IsNil())

	parsed, _ := ParseTenantID("a3bb189e-8bf9-3888-9912-ace4e6543002")
	assert.False(t, parsed.IsNil())
}
