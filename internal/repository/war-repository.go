package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kaanbarutcu/warseason/database"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/models"
)

type WarRepository interface {
	GetById(ctx context.Context, warID string) (*models.War, error)
	ListByWeek(ctx context.Context, seasonNumber, weekNumber int) ([]models.War, error)
	ListByWeekAndStatus(ctx context.Context, seasonNumber, weekNumber int, status string) ([]models.War, error)

	// UpdateStatus advances a war's lifecycle conditionally on its
	// expected current status. A false return means the war was not in
	// the expected status (usually: another instance got there first).
	UpdateStatus(ctx context.Context, war *models.War, fromStatus, toStatus string) (bool, error)
	ApplyScore(ctx context.Context, warID, side string, points int64) (*models.War, error)
	Resolve(ctx context.Context, war *models.War, outcome string, resolvedAt time.Time) (bool, error)

	// Transactions
	GetTransactionForCreate(war *models.War) (types.Put, error)
}

const (
	SideAttacker = "attacker"
	SideDefender = "defender"
)

type warRepo struct {
	db *database.DynamoDBClient
}

func NewWarRepository(db *database.DynamoDBClient) WarRepository {
	return &warRepo{db: db}
}

func (r *warRepo) GetById(ctx context.Context, warID string) (*models.War, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       warKey(warID),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get war: %w", err)
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "war not found")
	}

	var war models.War
	if err := attributevalue.UnmarshalMap(result.Item, &war); err != nil {
		return nil, fmt.Errorf("failed to unmarshal war: %w", err)
	}

	return &war, nil
}

func (r *warRepo) ListByWeek(ctx context.Context, seasonNumber, weekNumber int) ([]models.War, error) {
	return r.queryWeek(ctx, seasonNumber, weekNumber, "")
}

func (r *warRepo) ListByWeekAndStatus(
	ctx context.Context,
	seasonNumber, weekNumber int,
	status string,
) ([]models.War, error) {
	return r.queryWeek(ctx, seasonNumber, weekNumber, status)
}

func (r *warRepo) queryWeek(ctx context.Context, seasonNumber, weekNumber int, status string) ([]models.War, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :week"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":week": &types.AttributeValueMemberS{Value: models.WeekGSI1PK(seasonNumber, weekNumber)},
		},
	}

	if status != "" {
		input.KeyConditionExpression = aws.String("GSI1PK = :week AND begins_with(GSI1SK, :status)")
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{
			Value: models.WarStatusGSI1SKPrefix(status),
		}
	}

	result, err := r.db.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query wars: %w", err)
	}

	wars := make([]models.War, 0, len(result.Items))
	for _, item := range result.Items {
		var war models.War
		if err := attributevalue.UnmarshalMap(item, &war); err != nil {
			return nil, fmt.Errorf("failed to unmarshal war: %w", err)
		}
		wars = append(wars, war)
	}

	return wars, nil
}

func (r *warRepo) UpdateStatus(ctx context.Context, war *models.War, fromStatus, toStatus string) (bool, error) {
	expr := "SET #st = :to, GSI1SK = :sk, updated_at = :now"
	values := map[string]types.AttributeValue{
		":to":   &types.AttributeValueMemberS{Value: toStatus},
		":from": &types.AttributeValueMemberS{Value: fromStatus},
		":sk":   &types.AttributeValueMemberS{Value: models.WarStatusGSI1SK(toStatus, war.WarID)},
		":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}

	if toStatus == models.WarActive {
		expr += ", started_at = :now"
	}

	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              warKey(war.WarID),
		UpdateExpression: aws.String(expr),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(PK) AND #st = :from"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update war status: %w", err)
	}

	return true, nil
}

func (r *warRepo) ApplyScore(ctx context.Context, warID, side string, points int64) (*models.War, error) {
	field := "attacker_score"
	if side == SideDefender {
		field = "defender_score"
	} else if side != SideAttacker {
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("unknown war side: %s", side))
	}

	result, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              warKey(warID),
		UpdateExpression: aws.String(fmt.Sprintf("ADD %s :points SET updated_at = :now", field)),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":points": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", points)},
			":active": &types.AttributeValueMemberS{Value: models.WarActive},
			":now":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		// Scores only accumulate while the war is in its active window.
		ConditionExpression: aws.String("attribute_exists(PK) AND #st = :active"),
		ReturnValues:        types.ReturnValueAllNew,
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to apply combat score: %w", err)
	}

	var war models.War
	if err := attributevalue.UnmarshalMap(result.Attributes, &war); err != nil {
		return nil, fmt.Errorf("failed to unmarshal war: %w", err)
	}

	return &war, nil
}

func (r *warRepo) Resolve(ctx context.Context, war *models.War, outcome string, resolvedAt time.Time) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       warKey(war.WarID),
		UpdateExpression: aws.String(
			"SET #st = :resolved, outcome = :outcome, resolved_at = :at, GSI1SK = :sk, updated_at = :at"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":resolved": &types.AttributeValueMemberS{Value: models.WarResolved},
			":active":   &types.AttributeValueMemberS{Value: models.WarActive},
			":outcome":  &types.AttributeValueMemberS{Value: outcome},
			":sk":       &types.AttributeValueMemberS{Value: models.WarStatusGSI1SK(models.WarResolved, war.WarID)},
			":at":       &types.AttributeValueMemberS{Value: resolvedAt.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #st = :active"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve war: %w", err)
	}

	return true, nil
}

// Transactions

func (r *warRepo) GetTransactionForCreate(war *models.War) (types.Put, error) {
	war.PK = models.WarPK(war.WarID)
	war.SK = models.MetaSK()
	war.GSI1PK = models.WeekGSI1PK(war.SeasonNumber, war.WeekNumber)
	war.GSI1SK = models.WarStatusGSI1SK(war.Status, war.WarID)
	war.DeclaredAt = time.Now()

	item, err := attributevalue.MarshalMap(war)
	if err != nil {
		return types.Put{}, fmt.Errorf("failed to marshal war: %w", err)
	}

	return types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}, nil
}

func warKey(warID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.WarPK(warID)},
		"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
	}
}
