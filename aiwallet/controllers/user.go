package controllers

import (
	"aiwallet/aiwallet/sources/psql/dao"
	"aiwallet/aiwallet/types"
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

type UserController struct {
	dao *dao.UserDAO
}

func NewUserController(dao *dao.UserDAO) *UserController {
	return &UserController{dao: dao}
}

func (c *UserController) GetUser(ctx context.Context, id int) (*types.UserResponse, error) {
	user, err := c.dao.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return &types.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		CreatedAt: user.CreatedAt,
	}, nil
}
