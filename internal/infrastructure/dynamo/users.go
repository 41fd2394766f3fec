package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-accounts/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
//
// Email uniqueness is enforced with a second item keyed "email#<address>" written in the
// same transaction as the user; GSIs cannot enforce uniqueness on their own.
type UserRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewUserRepo(client API, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	lock := map[string]types.AttributeValue{
		fieldUserID: &types.AttributeValueMemberS{Value: emailLockPrefix + u.Email},
		"owner_id":  &types.AttributeValueMemberS{Value: u.UserID},
	}
	notExists := aws.String("attribute_not_exists(" + fieldUserID + ")")
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: item, ConditionExpression: notExists}},
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: lock, ConditionExpression: notExists}},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			for _, reason := range tce.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return fmt.Errorf("email already registered: %w", domain.ErrConflict)
				}
			}
		}
		return domain.StorageError("create user", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, domain.StorageError("get user", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, domain.StorageError("unmarshal user", err)
	}
	return &u, nil
}

// GetByEmail reads the email-index GSI, which is eventually consistent.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUserEmail),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, domain.StorageError("query user by email", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, domain.StorageError("unmarshal user", err)
	}
	return &u, nil
}

func (r *UserRepo) SetOTP(ctx context.Context, userID string, code int, expiry time.Time) error {
	return r.update(ctx, "set otp", userID, map[string]interface{}{
		fieldOTP:       code,
		fieldOTPExpiry: expiry.UTC(),
	}, nil, nil)
}

// VerifyEmail marks the email verified and clears the OTP, only while the stored code is still code.
func (r *UserRepo) VerifyEmail(ctx context.Context, userID string, code int) error {
	return r.update(ctx, "verify email", userID, map[string]interface{}{
		fieldIsEmailVerified: true,
	}, []string{fieldOTP, fieldOTPExpiry}, &code)
}

func (r *UserRepo) ResetPassword(ctx context.Context, userID string, code int, passwordHash string) error {
	return r.update(ctx, "reset password", userID, map[string]interface{}{
		fieldPasswordHash: passwordHash,
	}, []string{fieldOTP, fieldOTPExpiry}, &code)
}

func (r *UserRepo) SetAvatar(ctx context.Context, userID, key string) error {
	return r.update(ctx, "set avatar", userID, map[string]interface{}{
		fieldAvatarKey: key,
	}, nil, nil)
}

// update applies set/remove to an existing user. When otp is non-nil the write is also
// conditioned on the stored otp equalling it.
func (r *UserRepo) update(ctx context.Context, op, userID string, set map[string]interface{}, remove []string, otp *int) error {
	set[fieldUpdatedAt] = r.now().UTC()
	ue, err := buildUpdateExpr(set, remove...)
	if err != nil {
		return err
	}
	cond := "attribute_exists(#pk)"
	ue.Names["#pk"] = fieldUserID
	if otp != nil {
		cond += " AND #otp = :otp"
		ue.Names["#otp"] = fieldOTP
		ue.Values[":otp"] = &types.AttributeValueMemberN{Value: strconv.Itoa(*otp)}
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldUserID, userID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String(cond),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return conditionErr(op, err)
	}
	return nil
}
