package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `[]`, `"users"`, `null`, `{"data":`} {
		_, err := ParseEnvelope([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, "body %q", body)
	}
}

func TestParseEnvelope_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		data  ValueKind
		typ   ValueKind
		attrs ValueKind
	}{
		{name: "empty body", body: ``, data: Absent},
		{name: "blank body", body: " \n\t", data: Absent},
		{name: "empty object", body: `{}`, data: Absent},
		{name: "null data", body: `{"data":null}`, data: Absent},
		{name: "array data", body: `{"data":[]}`, data: Other},
		{name: "string data", body: `{"data":"x"}`, data: String},
		{name: "object type", body: `{"data":{"type":{}}}`, data: Object, typ: Object},
		{name: "numeric type", body: `{"data":{"type":1}}`, data: Object, typ: Other},
		{name: "full", body: `{"data":{"type":"users","attributes":{}}}`, data: Object, typ: String, attrs: Object},
		{name: "string attributes", body: `{"data":{"type":"users","attributes":"x"}}`, data: Object, typ: String, attrs: String},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.data, env.Data)
			assert.Equal(t, tt.typ, env.Type)
			assert.Equal(t, tt.attrs, env.Attributes)
		})
	}
}

func TestEnvelope_Attr(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"data":{"type":"users","attributes":{"a":"x","b":5,"c":null,"d":"  "}}}`))
	require.NoError(t, err)
	assert.Equal(t, "users", env.TypeValue)

	v, kind := env.Attr("a")
	assert.Equal(t, String, kind)
	assert.Equal(t, "x", v)

	_, kind = env.Attr("b")
	assert.Equal(t, Other, kind)
	_, kind = env.Attr("c")
	assert.Equal(t, Absent, kind)
	_, kind = env.Attr("missing")
	assert.Equal(t, Absent, kind)

	assert.True(t, env.Filled("a"))
	assert.True(t, env.Filled("b"))
	assert.False(t, env.Filled("c"))
	assert.False(t, env.Filled("d"))
}
