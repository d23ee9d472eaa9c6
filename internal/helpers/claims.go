package helpers

import "github.com/golang-jwt/jwt/v5"

const RoleAdmin = "admin"

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (ac *AdminClaims) IsAdmin() bool {
	return ac.Role == RoleAdmin
}

func (ac *AdminClaims) GetSafeRole() string {
	if ac.Role == "" {
		return "guest"
	}
	return ac.Role
}
