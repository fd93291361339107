package model

import "time"

// Roles a caller can hold.  The role is fixed at registration time and
// carried in the access token.
const (
    RoleAdmin = "ADMIN"
    RoleUser  = "USER"
)

// User represents an account as stored in the `users` table.  Admins
// manage a restaurant, users (diners) reserve tables.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name supplied at signup.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or USER.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
    return role == RoleAdmin || role == RoleUser
}
