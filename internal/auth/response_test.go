package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/visionui-beacon/internal/bus"
)

func TestBearerTokenPrefersSessionToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "session_token only", body: `{"success":true,"session_token":"st"}`, want: "st"},
		{name: "token only", body: `{"success":true,"token":"tk"}`, want: "tk"},
		{name: "both", body: `{"success":true,"token":"tk","session_token":"st"}`, want: "st"},
		{name: "neither", body: `{"success":true}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.BearerToken())
		})
	}
}

func TestSignal(t *testing.T) {
	r := Response{Success: true, Token: "tk", Email: "ana@example.com"}

	s, err := r.Signal(KindLogin)
	require.NoError(t, err)
	assert.Equal(t, bus.Signal{Name: bus.SignalLogin, Email: "ana@example.com"}, s)

	s, err = r.Signal(KindRegister)
	require.NoError(t, err)
	assert.Equal(t, bus.SignalRegistration, s.Name)

	_, err = r.Signal("logout")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSignalRejectsFailures(t *testing.T) {
	_, err := Response{Success: false, Error: "Invalid credentials"}.Signal(KindLogin)
	assert.EqualError(t, err, "Invalid credentials")

	_, err = Response{Success: true}.Signal(KindLogin)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)
}
