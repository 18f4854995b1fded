package dto

// Inbound request payloads. Field-by-field validation with ordered,
// user-facing messages happens in the service layer; the struct tags
// cover only the shape checks the handlers perform up front.

type CreateUserRequest struct {
	Name           string `json:"name"`
	Mail           string `json:"mail"`
	Password       string `json:"password"`
	PasswordVerify string `json:"password_verify"`
}

type ChangeEnrollmentRequest struct {
	UUID   string `json:"uuid" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type ChangePasswordRequest struct {
	Old string `json:"old" validate:"required"`
	New string `json:"new" validate:"required"`
}

type InviteRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required"`
	Method string `json:"method" validate:"required"`
}

type EnrolRequest struct {
	Username string `json:"username"`
	Mail     string `json:"mail"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

type AcceptRequest struct {
	UUID string `json:"uuid" validate:"required"`
}

type RequestResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type RoleRequest struct {
	UUID string `json:"uuid"`
	Role string `json:"role"`
}

type ToggleRequest struct {
	UUID   string `json:"uuid"`
	Status *bool  `json:"status"`
}

type DeleteUserRequest struct {
	UUID string `json:"uuid" validate:"required"`
}
