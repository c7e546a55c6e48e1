package admin

type LoginRequest struct {
	Password string `json:"password"`
}

type InvalidPasswordResponse struct {
	Error             string `json:"error"`
	AttemptsRemaining int    `json:"attemptsRemaining"`
}

const (
	MsgInvalidUsername   = "Invalid username"
	MsgIncorrectPassword = "Incorrect password"
	MsgAccessLocked      = "Access is locked"
	MsgPasswordRequired  = "Password is required"
	MsgInvalidBody       = "Invalid request body"
	MsgLoginFailed       = "Login failed"
)
