package goSession

import (
	"encoding/json"

	"github.com/MrEthical07/goSession/credential"
)

// SignInResult is returned by [Client.SignIn].
type SignInResult struct {
	// User is the raw user object returned by the sign-in endpoint.
	User       json.RawMessage
	Credential credential.Credential
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	User         json.RawMessage `json:"user"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refresh_token,omitempty"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
