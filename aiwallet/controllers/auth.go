package controllers

import (
	"aiwallet/aiwallet/config"
	"aiwallet/aiwallet/middlewares"
	"aiwallet/aiwallet/sources/psql/dao"
	"context"
	"errors"
	"strings"
)

var ErrEmptyUsername = errors.New("username is required")

type AuthController struct {
	userDAO *dao.UserDAO
	cfg     config.Config
}

func NewAuthController(userDAO *dao.UserDAO, cfg config.Config) *AuthController {
	return &AuthController{
		userDAO: userDAO,
		cfg:     cfg,
	}
}

// Login signs a token for username, creating the user on first login.
func (c *AuthController) Login(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}
	// Auto-create with dummy email
	user, err := c.userDAO.GetOrCreateUser(ctx, username, username+"@example.com")
	if err != nil {
		return "", err
	}
	return middlewares.IssueToken(c.cfg.JWTSecret, user.ID)
}
