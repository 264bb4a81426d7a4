package models

import "github.com/golang-jwt/jwt/v5"

// MemberRole distinguishes submitting members from print operators.
type MemberRole string

const (
	RoleMember   MemberRole = "MEMBER"
	RoleOperator MemberRole = "OPERATOR"
)

// JWTClaims is the verified access-token payload attached by the auth
// middleware. Token issuance happens upstream.
type JWTClaims struct {
	MemberID string     `json:"member_id"`
	Role     MemberRole `json:"role"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	jwt.RegisteredClaims
}
