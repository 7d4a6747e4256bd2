package account

import (
	"context"
	"testing"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/features/user"
	"tafe-weather-api/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeUsers struct {
	user.UserRepository
	user      *models.User
	pipelines []mongo.Pipeline
	sets      []bson.M
}

func (f *fakeUsers) Aggregate(_ context.Context, _ string, p mongo.Pipeline, results any) error {
	f.pipelines = append(f.pipelines, p)
	docs := bson.A{}
	if f.user != nil {
		docs = append(docs, bson.M{"firstName": f.user.FirstName, "emailAddress": f.user.EmailAddress})
	}
	raw, _ := bson.Marshal(bson.M{"v": docs})
	return bson.Raw(raw).Lookup("v").Unmarshal(results)
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUsers) Update(_ context.Context, _ primitive.ObjectID, set bson.M) (*mongo.UpdateResult, error) {
	f.sets = append(f.sets, set)
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func newAccount(t *testing.T) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password1")
	require.NoError(t, err)
	return &models.User{ID: primitive.NewObjectID(), FirstName: "Ada", EmailAddress: "ada@example.com",
		Password: hash, Role: []models.Role{models.RoleStudent}, Status: models.StatusActive}
}

func TestShowHidesIDAndPassword(t *testing.T) {
	me := newAccount(t)
	repo := &fakeUsers{user: me}
	svc := NewAccountService(repo, zap.NewNop())

	acc, err := svc.Show(context.Background(), me.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", acc.FirstName)

	project := repo.pipelines[0][1]
	assert.Equal(t, "$project", project[0].Key)
	assert.Equal(t, bson.M{"_id": 0, "password": 0}, project[0].Value)

	repo.user = nil
	_, err = svc.Show(context.Background(), me.ID)
	assert.Equal(t, 404, apperror.From(err).Code)
}

func TestUpdateAccount(t *testing.T) {
	me := newAccount(t)
	repo := &fakeUsers{user: me}
	svc := NewAccountService(repo, zap.NewNop())

	res, err := svc.Update(context.Background(), me.ID, UpdateAccountRequest{FirstName: "Ada", LastName: "King", Phone: "0412345678"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ModifiedCount)
	assert.Equal(t, "King", repo.sets[0]["lastName"])
	assert.Contains(t, repo.sets[0], "updatedAt")
	assert.NotContains(t, repo.sets[0], "emailAddress")
}

func TestUpdatePassword(t *testing.T) {
	me := newAccount(t)
	repo := &fakeUsers{user: me}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &AccountServiceImpl{UserRepo: repo, Logger: zap.NewNop(), now: func() time.Time { return now }}
	ctx := context.Background()

	_, err := svc.UpdatePassword(ctx, me.ID, UpdatePasswordRequest{CurrentPassword: "password9", NewPassword: "password2", ConfirmNewPassword: "password2"})
	appErr := apperror.From(err)
	assert.Equal(t, 401, appErr.Code)
	assert.Equal(t, "Incorrect password", appErr.Message)
	assert.Empty(t, repo.sets)

	_, err = svc.UpdatePassword(ctx, me.ID, UpdatePasswordRequest{CurrentPassword: "password1", NewPassword: "password2", ConfirmNewPassword: "password2"})
	require.NoError(t, err)

	set := repo.sets[0]
	assert.True(t, utils.CheckPassword(set["password"].(string), "password2"))
	assert.Equal(t, now.Add(-time.Second), set["passwordChangedAt"])
	assert.Equal(t, set["passwordChangedAt"], set["updatedAt"])

	_, err = svc.UpdatePassword(ctx, primitive.NewObjectID(), UpdatePasswordRequest{CurrentPassword: "password1"})
	assert.Equal(t, 404, apperror.From(err).Code)
}
