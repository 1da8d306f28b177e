package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/email"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
	"github.com/hometrove/marketplace-api/pkg/storage"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

type AuthController struct {
	db       *gorm.DB
	validate *validate.Validator
	errs     *apperr.Classifier
	tokens   *jwtutil.Manager
	mailer   *email.Service
	store    *storage.Client
	log      *logrus.Logger
}

func NewAuthController(db *gorm.DB, v *validate.Validator, errs *apperr.Classifier, tokens *jwtutil.Manager, mailer *email.Service, store *storage.Client, log *logrus.Logger) *AuthController {
	return &AuthController{db: db, validate: v, errs: errs, tokens: tokens, mailer: mailer, store: store, log: log}
}

type RegisterInput struct {
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=8"`
	Role        model.Role `json:"role" validate:"required,oneof=agent seller"`
	FirstName   string     `json:"first_name" validate:"required"`
	LastName    string     `json:"last_name" validate:"required"`
	PhoneNumber string     `json:"phone_number"`
	CompanyName string     `json:"company_name"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates an agent or seller account. Admin accounts come from the
// seeder, never from this route. New accounts start unverified.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return ac.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := ac.validate.Struct(input); len(errs) > 0 {
		return ac.errs.Respond(c, apperr.Validation("", errs))
	}

	var existing model.User
	if err := ac.db.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		return ac.errs.Respond(c, apperr.New(apperr.CodeConflict, "Email already registered"))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return ac.errs.Respond(c, err)
	}

	user := model.User{
		Email:       input.Email,
		Password:    string(hashed),
		Role:        input.Role,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		PhoneNumber: input.PhoneNumber,
		CompanyName: input.CompanyName,
	}

	if err := ac.db.Create(&user).Error; err != nil {
		return ac.errs.Respond(c, err)
	}

	if ac.mailer != nil {
		if err := ac.mailer.SendWelcome(user.Email, user.FullName(), string(user.Role)); err != nil && ac.log != nil {
			ac.log.WithError(err).Warn("could not send welcome email")
		}
	}

	token, err := ac.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return ac.errs.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user.PublicProfile(),
	})
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return ac.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := ac.validate.Struct(input); len(errs) > 0 {
		return ac.errs.Respond(c, apperr.Validation("", errs))
	}

	var user model.User
	if err := ac.db.Where("email = ?", input.Email).First(&user).Error; err != nil {
		return ac.errs.Respond(c, apperr.New(apperr.CodeUnauthorized, "Invalid credentials"))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return ac.errs.Respond(c, apperr.New(apperr.CodeUnauthorized, "Invalid credentials"))
	}

	token, err := ac.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return ac.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.PublicProfile(),
	})
}

func (ac *AuthController) Me(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	var user model.User
	if err := ac.db.First(&user, claims.UserID).Error; err != nil {
		return ac.errs.Respond(c, apperr.NotFound("User"))
	}

	return c.JSON(fiber.Map{"user": user.PublicProfile()})
}

type ProfileInput struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	PhoneNumber string `json:"phone_number"`
	CompanyName string `json:"company_name"`
}

func (ac *AuthController) UpdateProfile(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	input := new(ProfileInput)
	if err := c.BodyParser(input); err != nil {
		return ac.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := ac.validate.Struct(input); len(errs) > 0 {
		return ac.errs.Respond(c, apperr.Validation("", errs))
	}

	var user model.User
	if err := ac.db.First(&user, claims.UserID).Error; err != nil {
		return ac.errs.Respond(c, apperr.NotFound("User"))
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.PhoneNumber = input.PhoneNumber
	user.CompanyName = input.CompanyName

	if err := ac.db.Save(&user).Error; err != nil {
		return ac.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{"user": user.PublicProfile()})
}

func (ac *AuthController) UploadAvatar(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	file, err := c.FormFile("avatar")
	if err != nil {
		return ac.errs.Respond(c, apperr.Validation("No file uploaded", nil))
	}

	url, err := ac.store.UploadAvatar(c.Context(), file, claims.UserID)
	if err != nil {
		return ac.errs.Respond(c, apperr.Wrap(apperr.CodeUpstream, err))
	}

	if err := ac.db.Model(&model.User{}).
		Where("id = ?", claims.UserID).
		Update("avatar", url).Error; err != nil {
		return ac.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{"avatar": url})
}
