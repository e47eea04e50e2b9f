package models

// TokenPayload is the minimal public-safe account projection carried inside
// access and refresh tokens and returned as the account view.
type TokenPayload struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	IsActivated bool   `json:"isActivated"`
}

// TokenPair is one issuance: a short-lived access token and a longer-lived
// refresh token, signed with distinct secrets.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
