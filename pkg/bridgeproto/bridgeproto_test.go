package bridgeproto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_WithPayload(t *testing.T) {
	data, err := Marshal(TypeSelect, SelectPayload{ID: "bata", Floor: "ground-floor", ShowRoute: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"select","payload":{"id":"bata","floor":"ground-floor","showRoute":true}}`, string(data))
}

func TestMarshal_NilPayload(t *testing.T) {
	data, err := Marshal(TypeResetView, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reset_view"}`, string(data))
}

func TestMarshal_Unencodable(t *testing.T) {
	_, err := Marshal(TypeStatus, func() {})
	assert.Error(t, err)
}

func TestUnmarshal(t *testing.T) {
	env, err := Unmarshal([]byte(`{"type":"pointer","payload":{"x":10,"y":20}}`))
	require.NoError(t, err)
	assert.Equal(t, TypePointer, env.Type)

	var p PointerPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, PointerPayload{X: 10, Y: 20}, p)
}

func TestUnmarshal_Rejects(t *testing.T) {
	_, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
