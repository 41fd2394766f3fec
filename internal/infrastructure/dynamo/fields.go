package dynamo

// DynamoDB attribute names used in keys, indexes and update expressions.
// They must match the dynamodbav tags on domain.User and domain.Token.
const (
	fieldUserID          = "user_id"
	fieldEmail           = "email"
	fieldPasswordHash    = "password_hash"
	fieldIsEmailVerified = "is_email_verified"
	fieldAvatarKey       = "avatar_key"
	fieldOTP             = "otp"
	fieldOTPExpiry       = "otp_expiry"
	fieldUpdatedAt       = "updated_at"

	fieldTokenID = "token_id"
	fieldAccess  = "access"
	fieldRefresh = "refresh"

	// emailLockPrefix marks the users-table item that reserves an email address.
	emailLockPrefix = "email#"
)
