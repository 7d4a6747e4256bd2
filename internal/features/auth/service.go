package auth

import (
	"context"
	"errors"

	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/features/user"
	"tafe-weather-api/internal/metrics"
	"tafe-weather-api/pkg/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const incorrectCredentials = "Incorrect Credentials"

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthServiceImpl struct {
	UserRepo user.UserRepository
	Logger   *zap.Logger
}

func NewAuthService(userRepo user.UserRepository, logger *zap.Logger) AuthService {
	return &AuthServiceImpl{
		UserRepo: userRepo,
		Logger:   logger,
	}
}

// Login exchanges credentials of an active account for a signed token.
// Unknown emails, inactive accounts and wrong passwords fail alike.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	usr, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return "", err
		}
		metrics.LoginAttempts.WithLabelValues("unknown").Inc()
		return "", apperror.Unauthorized(incorrectCredentials)
	}

	if !usr.IsActive() {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return "", apperror.Unauthorized(incorrectCredentials)
	}

	if !utils.CheckPassword(usr.Password, password) {
		metrics.LoginAttempts.WithLabelValues("bad_password").Inc()
		s.Logger.Info("Rejected login", zap.String("userId", usr.ID.Hex()))
		return "", apperror.Unauthorized(incorrectCredentials)
	}

	token, err := utils.GenerateToken(usr.ID, usr.EmailAddress, usr.RoleStrings(), string(usr.Status))
	if err != nil {
		return "", err
	}

	if err := s.UserRepo.TouchLastLoggedIn(ctx, usr.ID); err != nil {
		s.Logger.Warn("Failed to record login time", zap.Error(err))
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return token, nil
}
