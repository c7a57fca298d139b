package services

import (
	"context"
	"strings"
	"time"

	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/apperr"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService struct {
	users    UserStore
	vehicles VehicleStore
	now      func() time.Time
}

func NewUserService(users UserStore, vehicles VehicleStore) *UserService {
	return &UserService{users: users, vehicles: vehicles, now: time.Now}
}

type CreateUserRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=100"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone,omitempty" validate:"omitempty,ptphone"`
	WhatsApp         string `json:"whatsapp,omitempty" validate:"omitempty,ptphone"`
	Company          string `json:"company,omitempty" validate:"max=100"`
	IsPrimaryManager bool   `json:"isPrimaryManager"`
}

type UpdateUserRequest struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string `json:"phone,omitempty" validate:"omitempty,ptphone"`
	WhatsApp         *string `json:"whatsapp,omitempty" validate:"omitempty,ptphone"`
	Company          *string `json:"company,omitempty" validate:"omitempty,max=100"`
	IsPrimaryManager *bool   `json:"isPrimaryManager,omitempty"`
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.FindAll(ctx)
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := repository.ParseID(id, "user")
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, objectID)
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	now := s.now().UTC()
	user := &models.User{
		ID:               primitive.NewObjectID(),
		Name:             strings.TrimSpace(req.Name),
		Email:            normalizeEmail(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		WhatsApp:         strings.TrimSpace(req.WhatsApp),
		Company:          strings.TrimSpace(req.Company),
		IsPrimaryManager: req.IsPrimaryManager,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": user.ID.Hex(), "primary_manager": user.IsPrimaryManager}).Info("User created")
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.WhatsApp != nil {
		user.WhatsApp = strings.TrimSpace(*req.WhatsApp)
	}
	if req.Company != nil {
		user.Company = strings.TrimSpace(*req.Company)
	}
	if req.IsPrimaryManager != nil {
		user.IsPrimaryManager = *req.IsPrimaryManager
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser refuses to remove a user that is still responsible for vehicles.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	objectID, err := repository.ParseID(id, "user")
	if err != nil {
		return err
	}

	count, err := s.vehicles.CountByUser(ctx, objectID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("user is responsible for %d vehicle(s)", count)
	}

	return s.users.Delete(ctx, objectID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
