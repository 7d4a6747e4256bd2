package user

import (
	"context"
	"testing"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeUserRepo struct {
	users   map[primitive.ObjectID]*models.User
	filters []bson.M
	sets    []bson.M
	deleted int64
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Aggregate(_ context.Context, _ string, _ mongo.Pipeline, results any) error {
	raw, _ := bson.Marshal(bson.M{"v": bson.A{}})
	return bson.Raw(raw).Lookup("v").Unmarshal(results)
}

func (f *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUserRepo) TouchLastLoggedIn(_ context.Context, _ primitive.ObjectID) error { return nil }

func (f *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	u.ID = primitive.NewObjectID()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.EmailAddress == email {
			return u, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUserRepo) Update(_ context.Context, _ primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error) {
	f.sets = append(f.sets, set)
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeUserRepo) UpdateMany(_ context.Context, filter, set bson.M) (*mongo.UpdateResult, error) {
	f.filters = append(f.filters, filter)
	f.sets = append(f.sets, set)
	return &mongo.UpdateResult{MatchedCount: 2, ModifiedCount: 2}, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	if _, ok := f.users[id]; !ok {
		return 0, nil
	}
	delete(f.users, id)
	return 1, nil
}

func (f *fakeUserRepo) DeleteMany(_ context.Context, filter bson.M) (int64, error) {
	f.filters = append(f.filters, filter)
	return f.deleted, nil
}

func (f *fakeUserRepo) EnsureIndexes(_ context.Context) error { return nil }

var (
	admin   = &models.User{ID: primitive.NewObjectID(), Role: []models.Role{models.RoleAdmin}}
	teacher = &models.User{ID: primitive.NewObjectID(), Role: []models.Role{models.RoleTeacher}}
)

func code(err error) int {
	if err == nil {
		return 0
	}
	return apperror.From(err).Code
}

func TestBatchFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		actor *models.User
		code  int
	}{
		{"unknown role", "role=principal&createdAt=2021-01-01", admin, 404},
		{"no date", "role=student", admin, 400},
		{"unparseable date", "role=student&createdAt=someday", admin, 400},
		{"unparseable range bound", "role=student&lastLoggedInAt[lte]=soon", admin, 400},
		{"teacher targets teachers", "role=teacher&createdAt[lte]=2021-01-01", teacher, 403},
		{"admin targets admins", "role=admin&createdAt[lte]=2021-01-01", admin, 403},
		{"teacher targets students", "role=student&lastLoggedInAt[lte]=2021-01-01", teacher, 0},
		{"admin targets teachers", "role=teacher&createdAt=2021-01-01", admin, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BatchFilter(filter.ParseQuery(tt.query), tt.actor)
			assert.Equal(t, tt.code, code(err))
		})
	}
}

func TestBatchFilterIgnoresOtherParams(t *testing.T) {
	f, err := BatchFilter(filter.ParseQuery("role=student&lastLoggedInAt[lt]=2021-06-01&firstName=Ada"), admin)
	require.NoError(t, err)

	assert.Equal(t, "student", f["role"])
	assert.Equal(t, bson.M{"$lt": time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)}, f["lastLoggedInAt"])
	assert.NotContains(t, f, "firstName")
}

func validCreate() CreateUserRequest {
	return CreateUserRequest{
		FirstName: "Ada", LastName: "Lovelace", EmailAddress: "ada@example.com", Phone: "0412345678",
		Role: []models.Role{models.RoleStudent}, Status: models.StatusActive,
		Password: "password1", ConfirmPassword: "password1",
	}
}

func TestCreateUser(t *testing.T) {
	utils.SetSecret("user-test")
	ctx := context.Background()
	repo := newFakeUserRepo(&models.User{ID: primitive.NewObjectID(), EmailAddress: "taken@example.com"})
	svc := NewUserService(repo)

	res, err := svc.CreateUser(ctx, validCreate(), teacher)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Empty(t, res.Result.Password)
	require.NotNil(t, res.Result.LastLoggedInAt)

	stored := repo.users[res.Result.ID]
	assert.True(t, utils.CheckPassword(stored.Password, "password1"))

	claims, err := utils.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Result.ID.Hex(), claims.UserID)

	dup := validCreate()
	dup.EmailAddress = "taken@example.com"
	_, err = svc.CreateUser(ctx, dup, admin)
	assert.Equal(t, 400, code(err))

	promoted := validCreate()
	promoted.EmailAddress = "tess@example.com"
	promoted.Role = []models.Role{models.RoleTeacher}
	_, err = svc.CreateUser(ctx, promoted, teacher)
	assert.Equal(t, 403, code(err))
}

func TestDeleteUserRules(t *testing.T) {
	ctx := context.Background()
	otherAdmin := &models.User{ID: primitive.NewObjectID(), Role: []models.Role{models.RoleAdmin}}
	otherTeacher := &models.User{ID: primitive.NewObjectID(), Role: []models.Role{models.RoleTeacher}}
	student := &models.User{ID: primitive.NewObjectID(), Role: []models.Role{models.RoleStudent}}
	svc := NewUserService(newFakeUserRepo(otherAdmin, otherTeacher, student))

	assert.Equal(t, 403, code(svc.DeleteUser(ctx, otherAdmin.ID, admin)))
	assert.Equal(t, 403, code(svc.DeleteUser(ctx, otherTeacher.ID, teacher)))
	assert.Equal(t, 404, code(svc.DeleteUser(ctx, primitive.NewObjectID(), admin)))
	assert.NoError(t, svc.DeleteUser(ctx, student.ID, teacher))
	assert.NoError(t, svc.DeleteUser(ctx, otherTeacher.ID, admin))
}

func TestUpdateRoles(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	params := filter.ParseQuery("role=student&createdAt[gte]=2021-01-01")

	_, err := svc.UpdateRoles(ctx, params, []models.Role{models.RoleTeacher}, teacher)
	assert.Equal(t, 403, code(err))

	res, err := svc.UpdateRoles(ctx, params, []models.Role{models.RoleSensor}, teacher)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.MatchedCount)

	set := repo.sets[len(repo.sets)-1]
	assert.Equal(t, []models.Role{models.RoleSensor}, set["role"])
	assert.Contains(t, set, "updatedAt")
}

func TestDeleteUsersNothingMatched(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	_, err := svc.DeleteUsers(context.Background(), filter.ParseQuery("role=student&lastLoggedInAt[lte]=2021-01-01"), admin)
	assert.Equal(t, 404, code(err))
}

func TestUpdateUserRules(t *testing.T) {
	ctx := context.Background()
	student := &models.User{ID: primitive.NewObjectID(), EmailAddress: "sam@example.com", Role: []models.Role{models.RoleStudent}}
	other := &models.User{ID: primitive.NewObjectID(), EmailAddress: "ivy@example.com", Role: []models.Role{models.RoleStudent}}
	repo := newFakeUserRepo(student, other)
	svc := NewUserService(repo)

	name := "Samuel"
	_, err := svc.UpdateUser(ctx, student.ID, UpdateUserRequest{FirstName: &name}, teacher)
	require.NoError(t, err)
	assert.Equal(t, "Samuel", repo.sets[0]["firstName"])

	_, err = svc.UpdateUser(ctx, student.ID, UpdateUserRequest{Role: []models.Role{models.RoleAdmin}}, teacher)
	assert.Equal(t, 403, code(err))

	taken := "ivy@example.com"
	_, err = svc.UpdateUser(ctx, student.ID, UpdateUserRequest{EmailAddress: &taken}, teacher)
	assert.Equal(t, 400, code(err))
}
