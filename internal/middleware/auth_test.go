package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeUsers struct {
	users   map[primitive.ObjectID]*models.User
	touched []primitive.ObjectID
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUsers) TouchLastLoggedIn(_ context.Context, id primitive.ObjectID) error {
	f.touched = append(f.touched, id)
	return nil
}

func newProtectedApp(users UserFinder, roles ...models.Role) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler(zap.NewNop())})
	app.Get("/private", Protect(users, false), AuthorisedTo(roles...), func(c *fiber.Ctx) error {
		user, _ := CurrentUser(c)
		return c.SendString(user.FirstName)
	})
	return app
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.EmailAddress, u.RoleStrings(), string(u.Status))
	require.NoError(t, err)
	return token
}

func TestProtect(t *testing.T) {
	utils.SetSecret("middleware-test")

	teacher := &models.User{ID: primitive.NewObjectID(), FirstName: "Tess", Role: []models.Role{models.RoleTeacher}, Status: models.StatusActive}
	student := &models.User{ID: primitive.NewObjectID(), FirstName: "Sam", Role: []models.Role{models.RoleStudent}, Status: models.StatusActive}
	inactive := &models.User{ID: primitive.NewObjectID(), FirstName: "Ivy", Role: []models.Role{models.RoleTeacher}, Status: models.StatusInactive}
	changed := time.Now().Add(time.Hour)
	rotated := &models.User{ID: primitive.NewObjectID(), FirstName: "Rex", Role: []models.Role{models.RoleTeacher}, Status: models.StatusActive, PasswordChangedAt: &changed}
	ghost := &models.User{ID: primitive.NewObjectID(), Role: []models.Role{models.RoleTeacher}}

	users := &fakeUsers{users: map[primitive.ObjectID]*models.User{
		teacher.ID: teacher, student.ID: student, inactive.ID: inactive, rotated.ID: rotated,
	}}
	app := newProtectedApp(users, models.RoleAdmin, models.RoleTeacher)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", 401},
		{"not bearer", "Basic abc", 401},
		{"garbage token", "Bearer abc", 401},
		{"deleted user", "Bearer " + tokenFor(t, ghost), 401},
		{"inactive user", "Bearer " + tokenFor(t, inactive), 401},
		{"password changed after token", "Bearer " + tokenFor(t, rotated), 401},
		{"wrong role", "Bearer " + tokenFor(t, student), 403},
		{"allowed", "Bearer " + tokenFor(t, teacher), 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	assert.Contains(t, users.touched, teacher.ID)
}

func TestProtectSkipAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/private", Protect(&fakeUsers{}, true), AuthorisedTo(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(204)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
}
