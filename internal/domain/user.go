package domain

import (
	"io"
	"time"
)

type User struct {
	UserID          string     `json:"id" dynamodbav:"user_id" db:"id"`
	Email           string     `json:"email" dynamodbav:"email" db:"email"`
	FirstName       string     `json:"first_name" dynamodbav:"first_name" db:"first_name"`
	LastName        string     `json:"last_name" dynamodbav:"last_name" db:"last_name"`
	PasswordHash    string     `json:"-" dynamodbav:"password_hash" db:"password_hash"`
	IsEmailVerified bool       `json:"is_email_verified" dynamodbav:"is_email_verified" db:"is_email_verified"`
	IsStaff         bool       `json:"is_staff" dynamodbav:"is_staff" db:"is_staff"`
	IsSuperuser     bool       `json:"is_superuser" dynamodbav:"is_superuser" db:"is_superuser"`
	IsFarmer        bool       `json:"is_farmer" dynamodbav:"is_farmer" db:"is_farmer"`
	TermsAgreement  bool       `json:"terms_agreement" dynamodbav:"terms_agreement" db:"terms_agreement"`
	AvatarKey       *string    `json:"-" dynamodbav:"avatar_key,omitempty" db:"avatar_key"`
	OTP             *int       `json:"-" dynamodbav:"otp,omitempty" db:"otp"`
	OTPExpiry       *time.Time `json:"-" dynamodbav:"otp_expiry,omitempty" db:"otp_expiry"`
	CreatedAt       time.Time  `json:"created" dynamodbav:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated" dynamodbav:"updated_at" db:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// HasOTP reports whether a one-time code is currently stored. Both fields move together.
func (u *User) HasOTP() bool {
	return u.OTP != nil && u.OTPExpiry != nil
}

type RegisterRequest struct {
	FirstName      string `json:"first_name" validate:"required,max=25"`
	LastName       string `json:"last_name" validate:"required,max=25"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	TermsAgreement bool   `json:"terms_agreement"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   int    `json:"otp" validate:"required"`
}

type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type SetNewPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      int    `json:"otp" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// AvatarUpload is an image to store as the user's avatar.
type AvatarUpload struct {
	Filename string
	// ContentType is the client-declared part type. Only the sniffed body decides.
	ContentType string
	Body        io.Reader
}

// SeedUser describes an account created by the seed command.
type SeedUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	IsStaff     bool
	IsSuperuser bool
}
