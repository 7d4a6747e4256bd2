package user

import "tafe-weather-api/internal/common/models"

type CreateUserRequest struct {
	FirstName       string            `json:"firstName" validate:"required,min=2,max=50"`
	LastName        string            `json:"lastName" validate:"required,min=2,max=50"`
	EmailAddress    string            `json:"emailAddress" validate:"required,email"`
	Phone           string            `json:"phone" validate:"required,auphone"`
	Role            []models.Role     `json:"role" validate:"required,min=1,dive,role"`
	Status          models.UserStatus `json:"status" validate:"required,userstatus"`
	Password        string            `json:"password" validate:"required,min=8,max=50"`
	ConfirmPassword string            `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// UpdateUserRequest changes only the fields present.
type UpdateUserRequest struct {
	FirstName    *string            `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName     *string            `json:"lastName" validate:"omitempty,min=2,max=50"`
	EmailAddress *string            `json:"emailAddress" validate:"omitempty,email"`
	Phone        *string            `json:"phone" validate:"omitempty,auphone"`
	Role         []models.Role      `json:"role" validate:"omitempty,min=1,dive,role"`
	Status       *models.UserStatus `json:"status" validate:"omitempty,userstatus"`
}

func (r *UpdateUserRequest) Fields() map[string]any {
	set := map[string]any{}
	if r.FirstName != nil {
		set["firstName"] = *r.FirstName
	}
	if r.LastName != nil {
		set["lastName"] = *r.LastName
	}
	if r.EmailAddress != nil {
		set["emailAddress"] = *r.EmailAddress
	}
	if r.Phone != nil {
		set["phone"] = *r.Phone
	}
	if r.Role != nil {
		set["role"] = r.Role
	}
	if r.Status != nil {
		set["status"] = *r.Status
	}
	return set
}

type UpdateRolesRequest struct {
	Role []models.Role `json:"role" validate:"required,min=1,dive,role"`
}

type CreateUserResponse struct {
	Token  string       `json:"token"`
	Result *models.User `json:"result"`
}
