package account

import (
	"time"

	"tafe-weather-api/internal/common/models"
)

// Account is the signed-in user's own view of their record.
type Account struct {
	FirstName         string            `json:"firstName" bson:"firstName"`
	LastName          string            `json:"lastName" bson:"lastName"`
	EmailAddress      string            `json:"emailAddress" bson:"emailAddress"`
	Phone             string            `json:"phone" bson:"phone"`
	Role              []models.Role     `json:"role" bson:"role"`
	Status            models.UserStatus `json:"status" bson:"status"`
	CreatedAt         time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt         *time.Time        `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
	PasswordChangedAt *time.Time        `json:"passwordChangedAt,omitempty" bson:"passwordChangedAt,omitempty"`
	LastLoggedInAt    *time.Time        `json:"lastLoggedInAt,omitempty" bson:"lastLoggedInAt,omitempty"`
}

type UpdateAccountRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Phone     string `json:"phone" validate:"required,auphone"`
}

type UpdatePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" validate:"required,min=8,max=50"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,max=50"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}
