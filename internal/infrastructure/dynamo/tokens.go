package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-api-accounts/internal/domain"
)

// TokenRepo provides typed DynamoDB operations for the tokens table.
type TokenRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewTokenRepo(client API, tableName string) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *TokenRepo) Put(ctx context.Context, t *domain.Token) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return domain.StorageError("put token", err)
	}
	return nil
}

// Get reads tokenID from the base table with a strongly consistent read.
func (r *TokenRepo) Get(ctx context.Context, tokenID string) (*domain.Token, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldTokenID, tokenID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, domain.StorageError("get token", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	var t domain.Token
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, domain.StorageError("unmarshal token", err)
	}
	return &t, nil
}

func (r *TokenRepo) GetByAccess(ctx context.Context, access string) (*domain.Token, error) {
	items, err := r.queryIndex(ctx, indexTokenAccess, fieldAccess, access, 1)
	if err != nil {
		return nil, err
	}
	return firstToken(items)
}

func (r *TokenRepo) GetByRefresh(ctx context.Context, refresh string) (*domain.Token, error) {
	items, err := r.queryIndex(ctx, indexTokenRefresh, fieldRefresh, refresh, 1)
	if err != nil {
		return nil, err
	}
	return firstToken(items)
}

// Rotate overwrites the pair on tokenID only while the row still holds oldRefresh.
// A concurrent rotation that got there first yields ErrConflict.
func (r *TokenRepo) Rotate(ctx context.Context, tokenID, oldRefresh, access, refresh string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldAccess:    access,
		fieldRefresh:   refresh,
		fieldUpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return err
	}
	ue.Names["#old"] = fieldRefresh
	ue.Values[":old"] = &types.AttributeValueMemberS{Value: oldRefresh}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldTokenID, tokenID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String("#old = :old"),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return conditionErr("rotate token", err)
	}
	return nil
}

// Delete removes tokenID only while it still holds access. A row that is gone or
// already rotated is left alone.
func (r *TokenRepo) Delete(ctx context.Context, tokenID, access string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldTokenID, tokenID),
		ConditionExpression:      aws.String("#access = :access"),
		ExpressionAttributeNames: map[string]string{"#access": fieldAccess},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":access": &types.AttributeValueMemberS{Value: access},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if err != nil && !errors.As(err, &ccf) {
		return domain.StorageError("delete token", err)
	}
	return nil
}

// DeleteByAccess removes every row holding access. Nothing to delete is not an error.
func (r *TokenRepo) DeleteByAccess(ctx context.Context, access string) error {
	items, err := r.queryIndex(ctx, indexTokenAccess, fieldAccess, access, 0)
	if err != nil {
		return err
	}
	for _, item := range items {
		id, ok := item[fieldTokenID].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey(fieldTokenID, id.Value),
		})
		if err != nil {
			return domain.StorageError("delete token", err)
		}
	}
	return nil
}

func (r *TokenRepo) queryIndex(ctx context.Context, index, attr, value string, limit int32) ([]map[string]types.AttributeValue, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	out, err := r.client.Query(ctx, in)
	if err != nil {
		return nil, domain.StorageError("query tokens", err)
	}
	return out.Items, nil
}

func firstToken(items []map[string]types.AttributeValue) (*domain.Token, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	var t domain.Token
	if err := attributevalue.UnmarshalMap(items[0], &t); err != nil {
		return nil, domain.StorageError("unmarshal token", err)
	}
	return &t, nil
}
