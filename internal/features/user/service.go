package user

import (
	"context"
	"errors"
	"strings"
	"time"

	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/pkg/filter"
	"tafe-weather-api/pkg/pipeline"
	"tafe-weather-api/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const notAuthorised = "You are not authorised to perform this action."

// batchDateFields select the accounts of a batch operation.
var batchDateFields = []string{"createdAt", "lastLoggedInAt"}

var batchCompiler = filter.NewCompiler()

type UserService interface {
	ListUsers(ctx context.Context, q common_api.ListQuery) (*pipeline.PageResult[models.User], error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest, actor *models.User) (*CreateUserResponse, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, req UpdateUserRequest, actor *models.User) (*mongo.UpdateResult, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID, actor *models.User) error
	DeleteUsers(ctx context.Context, params filter.Params, actor *models.User) (int64, error)
	UpdateRoles(ctx context.Context, params filter.Params, roles []models.Role, actor *models.User) (*mongo.UpdateResult, error)
}

type UserServiceImpl struct {
	UserRepo UserRepository
	now      func() time.Time
}

func NewUserService(userRepo UserRepository) UserService {
	return &UserServiceImpl{UserRepo: userRepo, now: time.Now}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, q common_api.ListQuery) (*pipeline.PageResult[models.User], error) {
	b := pipeline.NewBuilder().
		Match(q.Filter).
		Sort(q.Sort).
		Project(bson.M{"password": 0})
	return pipeline.RunPaginated[models.User](ctx, s.UserRepo, Collection, b, q.Limit, q.Page)
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.UserRepo.FindByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("The user not found.")
	}
	return u, err
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, req CreateUserRequest, actor *models.User) (*CreateUserResponse, error) {
	if err := s.ensureEmailFree(ctx, req.EmailAddress); err != nil {
		return nil, err
	}
	if !models.CanAssign(actor.Role, req.Role) {
		return nil, apperror.Forbidden(notAuthorised)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmailAddress: req.EmailAddress,
		Phone:        req.Phone,
		Password:     hash,
		Role:         req.Role,
		Status:       req.Status,
		CreatedAt:    now,
		// inactive-student cleanup keys on lastLoggedInAt, so it is never unset
		LastLoggedInAt: &now,
	}
	if err := s.UserRepo.Create(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.BadRequest("The user already exists.")
		}
		return nil, err
	}

	token, err := utils.GenerateToken(u.ID, u.EmailAddress, u.RoleStrings(), string(u.Status))
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return &CreateUserResponse{Token: token, Result: u}, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, id primitive.ObjectID, req UpdateUserRequest, actor *models.User) (*mongo.UpdateResult, error) {
	target, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanManage(actor.Role, target.Role) {
		return nil, apperror.Forbidden(notAuthorised)
	}
	if req.Role != nil && !models.CanAssign(actor.Role, req.Role) {
		return nil, apperror.Forbidden(notAuthorised)
	}
	if req.EmailAddress != nil && *req.EmailAddress != target.EmailAddress {
		if err := s.ensureEmailFree(ctx, *req.EmailAddress); err != nil {
			return nil, err
		}
	}

	set := bson.M(req.Fields())
	if len(set) == 0 {
		return nil, apperror.BadRequest("Nothing to update")
	}
	set["updatedAt"] = s.now().UTC()
	return s.UserRepo.Update(ctx, id, set)
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, id primitive.ObjectID, actor *models.User) error {
	target, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanManage(actor.Role, target.Role) {
		return apperror.Forbidden(notAuthorised)
	}

	n, err := s.UserRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("The user not found.")
	}
	return nil
}

func (s *UserServiceImpl) DeleteUsers(ctx context.Context, params filter.Params, actor *models.User) (int64, error) {
	f, err := BatchFilter(params, actor)
	if err != nil {
		return 0, err
	}
	n, err := s.UserRepo.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperror.NotFound("Users not found in this date range.")
	}
	return n, nil
}

func (s *UserServiceImpl) UpdateRoles(ctx context.Context, params filter.Params, roles []models.Role, actor *models.User) (*mongo.UpdateResult, error) {
	f, err := BatchFilter(params, actor)
	if err != nil {
		return nil, err
	}
	if !models.CanAssign(actor.Role, roles) {
		return nil, apperror.Forbidden(notAuthorised)
	}
	return s.UserRepo.UpdateMany(ctx, f, bson.M{"role": roles, "updatedAt": s.now().UTC()})
}

func (s *UserServiceImpl) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.UserRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.BadRequest("The user already exists.")
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	}
	return err
}

// BatchFilter builds the account filter of a batch operation from role and
// createdAt or lastLoggedInAt params. The role must exist, at least one
// parseable date filter is required so a batch never spans every account,
// and the actor must be allowed to manage accounts holding the role.
func BatchFilter(params filter.Params, actor *models.User) (bson.M, error) {
	role := models.Role(params.String("role"))
	if !role.Valid() {
		return nil, apperror.NotFound("This role is not found.")
	}

	picked := params.Pick(func(k string) bool {
		return k == "role" || dateField(k) != ""
	})

	hasDate := false
	for _, k := range picked.Keys() {
		if dateField(k) == "" {
			continue
		}
		v, _ := picked.Get(k)
		if !validDates(v) {
			return nil, apperror.BadRequest("Invalid date")
		}
		hasDate = true
	}
	if !hasDate {
		return nil, apperror.BadRequest("Invalid date")
	}

	if !models.CanManage(actor.Role, []models.Role{role}) {
		return nil, apperror.Forbidden(notAuthorised)
	}

	// role may have been repeated; the first value is the one checked above
	picked.Set("role", filter.Scalar(role))
	return batchCompiler.Compile(picked)
}

// dateField returns the date field a query key filters on, if any.
func dateField(key string) string {
	for _, f := range batchDateFields {
		if key == f || strings.HasPrefix(key, f+"[") {
			return f
		}
	}
	return ""
}

func validDates(v filter.Value) bool {
	switch t := v.(type) {
	case filter.Scalar:
		_, _, ok := filter.ParseDate(string(t))
		return ok
	case filter.List:
		for _, s := range t {
			if _, _, ok := filter.ParseDate(s); !ok {
				return false
			}
		}
		return len(t) > 0
	case filter.Nested:
		for _, k := range t.Keys() {
			inner, _ := t.Get(k)
			if !validDates(inner) {
				return false
			}
		}
		return t.Len() > 0
	}
	return false
}
