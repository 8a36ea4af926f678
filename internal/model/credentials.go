package model

// Credentials identify the student registering with the evaluation API.
//
// They are loaded once from configuration and never change while the
// process runs. The json tags match the /register request body exactly.
type Credentials struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	MobileNo       string `json:"mobileNo"`
	GithubUsername string `json:"githubUsername"`
	RollNo         string `json:"rollNo"`
	CollegeName    string `json:"collegeName"`
	AccessCode     string `json:"accessCode"`
}

// ClientRegistration is what /register hands back. It is used once to obtain
// a token and is never persisted.
type ClientRegistration struct {
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
}

// AuthRequest is the /auth request body: a subset of Credentials plus the
// client pair from registration.
type AuthRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RollNo       string `json:"rollNo"`
	AccessCode   string `json:"accessCode"`
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret"`
}

// NewAuthRequest combines the static credentials with a fresh registration.
func NewAuthRequest(c Credentials, reg ClientRegistration) AuthRequest {
	return AuthRequest{
		Email:        c.Email,
		Name:         c.Name,
		RollNo:       c.RollNo,
		AccessCode:   c.AccessCode,
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
	}
}
