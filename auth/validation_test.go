package auth

import (
	"chat-link/domain"
	"chat-link/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     SignUpRequest
		wantErr bool
	}{
		{"Valid request", SignUpRequest{"Alice", "alice@example.com", "password", ""}, false},
		{"Valid with picture", SignUpRequest{"Alice", "alice@example.com", "password", "https://cdn/a.png"}, false},
		{"Missing name", SignUpRequest{"", "alice@example.com", "password", ""}, true},
		{"Invalid email", SignUpRequest{"Alice", "notanemail", "password", ""}, true},
		{"Missing password", SignUpRequest{"Alice", "alice@example.com", "", ""}, true},
		{"Password too long", SignUpRequest{"Alice", "alice@example.com", strings.Repeat("a", 73), ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateSignUp(tt.req)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrInvalidRequest)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	req := require.New(t)

	req.NoError(ValidateLogin(LoginRequest{"alice@example.com", "password"}))
	req.ErrorIs(ValidateLogin(LoginRequest{"", "password"}), errors.ErrInvalidRequest)
	req.ErrorIs(ValidateLogin(LoginRequest{"alice@example.com", ""}), errors.ErrInvalidRequest)
}

func TestValidate_InboundMessage(t *testing.T) {
	req := require.New(t)

	req.NoError(Validate(domain.InboundMessage{Message: "hi", SenderID: "a", ReceiverID: "b"}))
	req.ErrorIs(Validate(domain.InboundMessage{Message: "hi", SenderID: "a"}), errors.ErrInvalidRequest)
}
