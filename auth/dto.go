package auth

// SignupRequest carries the fields required to create an account.
// PasswordConfirm is validated against Password and then discarded; it is
// never persisted.
type SignupRequest struct {
	UserName        string  `json:"userName" validate:"required,min=3,max=40"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8"`
	PasswordConfirm string  `json:"passwordConfirm" validate:"required,eqfield=Password"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Phone           Phone   `json:"phone" validate:"required"`
	Address         Address `json:"address"`
}

// LoginRequest authenticates by email or mobile number plus password.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordRequest rotates the password of a logged-in user.
type ChangePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// ForgotPasswordRequest starts the reset flow for the given email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest consumes a reset token delivered by mail.
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// AuthPayload is the success body of signup, login and password changes:
// the session token plus the sanitized user.
type AuthPayload struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Data   struct {
		User *User `json:"user"`
	} `json:"data"`
}
