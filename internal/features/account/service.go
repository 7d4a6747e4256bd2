package account

import (
	"context"
	"errors"
	"time"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/features/user"
	"tafe-weather-api/pkg/pipeline"
	"tafe-weather-api/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const accountNotFound = "The user not found."

type AccountService interface {
	Show(ctx context.Context, id primitive.ObjectID) (*Account, error)
	Update(ctx context.Context, id primitive.ObjectID, req UpdateAccountRequest) (*mongo.UpdateResult, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, req UpdatePasswordRequest) (*mongo.UpdateResult, error)
}

type AccountServiceImpl struct {
	UserRepo user.UserRepository
	Logger   *zap.Logger
	now      func() time.Time
}

func NewAccountService(userRepo user.UserRepository, logger *zap.Logger) AccountService {
	return &AccountServiceImpl{UserRepo: userRepo, Logger: logger, now: time.Now}
}

func (s *AccountServiceImpl) Show(ctx context.Context, id primitive.ObjectID) (*Account, error) {
	p := pipeline.NewBuilder().
		Match(bson.M{"_id": id}).
		Project(bson.M{"_id": 0, "password": 0}).
		Limit(1).
		Build()

	var found []Account
	if err := pipeline.Run(ctx, s.UserRepo, user.Collection, p, &found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, apperror.NotFound(accountNotFound)
	}
	return &found[0], nil
}

func (s *AccountServiceImpl) Update(ctx context.Context, id primitive.ObjectID, req UpdateAccountRequest) (*mongo.UpdateResult, error) {
	return s.UserRepo.Update(ctx, id, bson.M{
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"phone":     req.Phone,
		"updatedAt": s.now().UTC(),
	})
}

// UpdatePassword replaces the password once the current one is confirmed.
// passwordChangedAt is backdated a second so a token issued straight after
// the change is still accepted.
func (s *AccountServiceImpl) UpdatePassword(ctx context.Context, id primitive.ObjectID, req UpdatePasswordRequest) (*mongo.UpdateResult, error) {
	u, err := s.UserRepo.FindByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound(accountNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(u.Password, req.CurrentPassword) {
		return nil, apperror.Unauthorized("Incorrect password")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}

	changed := s.now().Add(-time.Second).UTC()
	res, err := s.UserRepo.Update(ctx, id, bson.M{
		"password":          hash,
		"passwordChangedAt": changed,
		"updatedAt":         changed,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Password changed", zap.String("userId", id.Hex()))
	return res, nil
}
