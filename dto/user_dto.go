package dto

type RegisterUserDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserStatusDTO struct {
	IsActive *bool `json:"isActive" binding:"required"`
}
