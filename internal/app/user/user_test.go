package user

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `"u1"`, want: "u1"},
		{raw: `42`, want: "42"},
		{raw: ` 9007199254740993 `, want: "9007199254740993"},
		{raw: `""`, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: ``, wantErr: true},
		{raw: `{"id":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseID(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePair(t *testing.T) {
	u, err := ParsePair(json.RawMessage(`["u2","Bob"]`))
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u2", Nickname: "Bob"}, u)

	u, err = ParsePair(json.RawMessage(`[7,"Seven"]`))
	require.NoError(t, err)
	assert.Equal(t, "7", u.ID)

	for _, raw := range []string{`["u2"]`, `["u2","Bob","x"]`, `{"id":"u2"}`, `["u2",3]`} {
		_, err := ParsePair(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
