package mural

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MarshalJSONKeepsKeys(t *testing.T) {
	raw := `{"project_name":"Wall","deadline":"1 Mayıs 2025","Sponsor":"City","title":"dup"}`
	rec, err := DecodeRecord(json.RawMessage(raw))
	require.NoError(t, err)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(b))

	again, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.Equal(t, rec.Keys, again.Keys)
	assert.Equal(t, rec.Name, again.Name)
	assert.Equal(t, rec.DateString(), again.DateString())
	assert.Equal(t, rec.Extra, again.Extra)
}

func TestRecord_MarshalJSONEditedFields(t *testing.T) {
	var rec Record
	require.NoError(t, rec.Set(ColumnName, "New"))
	require.NoError(t, rec.Set(ColumnStatus, "Başvuruldu"))
	require.NoError(t, rec.Set("Ekip", "3 kişi"))

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"Proje":"New","Durum":"Başvuruldu","Ekip":"3 kişi"}`, string(b))
}
