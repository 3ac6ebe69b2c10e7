package queue

// Routing keys on the auth events exchange.
const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyUserVerified   = "user.verified"
	KeyOTPRequested   = "email.otp_requested"
	KeyWelcome        = "email.welcome"
)

type UserRegistered struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type UserLoggedIn struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type UserVerified struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// OTPRequested asks the notify worker to deliver a one-time code. Purpose is
// "verification" or "reset" and selects the mail template.
type OTPRequested struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Code     string `json:"code"`
	Purpose  string `json:"purpose"`
}

type WelcomeRequested struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}
