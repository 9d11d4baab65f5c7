package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kaanbarutcu/warseason/database"
	"github.com/kaanbarutcu/warseason/models"
)

type RatingRepository interface {
	// Get returns nil without an error when the faction has no rating yet.
	Get(ctx context.Context, factionID string) (*models.PowerRating, error)
	Put(ctx context.Context, rating *models.PowerRating) error
	ListStale(ctx context.Context, olderThan time.Time, limit int32) ([]models.PowerRating, error)
	ListAll(ctx context.Context) ([]models.PowerRating, error)
	RecordResult(ctx context.Context, factionID string, won bool) error
	ResetSeasonCounters(ctx context.Context, factionID string) error
}

type ratingRepo struct {
	db *database.DynamoDBClient
}

func NewRatingRepository(db *database.DynamoDBClient) RatingRepository {
	return &ratingRepo{db: db}
}

func (r *ratingRepo) Get(ctx context.Context, factionID string) (*models.PowerRating, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       ratingKey(factionID),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get power rating: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var rating models.PowerRating
	if err := attributevalue.UnmarshalMap(result.Item, &rating); err != nil {
		return nil, fmt.Errorf("failed to unmarshal power rating: %w", err)
	}

	return &rating, nil
}

func (r *ratingRepo) Put(ctx context.Context, rating *models.PowerRating) error {
	rating.PK = models.FactionPK(rating.FactionID)
	rating.SK = models.RatingSK()
	rating.GSI1PK = models.RatingAllGSI1PK()
	rating.GSI1SK = models.ComputedGSI1SK(rating.ComputedAt.UTC().Format(time.RFC3339))
	rating.UpdatedAt = time.Now()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = rating.UpdatedAt
	}

	item, err := attributevalue.MarshalMap(rating)
	if err != nil {
		return fmt.Errorf("failed to marshal power rating: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.db.Table()),
		Item:      item,
	})

	if err != nil {
		return fmt.Errorf("failed to put power rating: %w", err)
	}

	return nil
}

func (r *ratingRepo) ListStale(ctx context.Context, olderThan time.Time, limit int32) ([]models.PowerRating, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :all AND GSI1SK < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":all": &types.AttributeValueMemberS{Value: models.RatingAllGSI1PK()},
			":cutoff": &types.AttributeValueMemberS{
				Value: models.ComputedGSI1SK(olderThan.UTC().Format(time.RFC3339)),
			},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	return r.queryRatings(ctx, input)
}

func (r *ratingRepo) ListAll(ctx context.Context) ([]models.PowerRating, error) {
	return r.queryRatings(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :all"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":all": &types.AttributeValueMemberS{Value: models.RatingAllGSI1PK()},
		},
	})
}

func (r *ratingRepo) queryRatings(ctx context.Context, input *dynamodb.QueryInput) ([]models.PowerRating, error) {
	result, err := r.db.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query power ratings: %w", err)
	}

	ratings := make([]models.PowerRating, 0, len(result.Items))
	for _, item := range result.Items {
		var rating models.PowerRating
		if err := attributevalue.UnmarshalMap(item, &rating); err != nil {
			return nil, fmt.Errorf("failed to unmarshal power rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	return ratings, nil
}

func (r *ratingRepo) RecordResult(ctx context.Context, factionID string, won bool) error {
	field := "season_losses"
	if won {
		field = "season_wins"
	}

	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              ratingKey(factionID),
		UpdateExpression: aws.String(fmt.Sprintf("ADD %s :one SET updated_at = :now", field)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to record war result: %w", err)
	}

	return nil
}

func (r *ratingRepo) ResetSeasonCounters(ctx context.Context, factionID string) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              ratingKey(factionID),
		UpdateExpression: aws.String("SET season_wins = :zero, season_losses = :zero, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to reset season counters: %w", err)
	}

	return nil
}

func ratingKey(factionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.FactionPK(factionID)},
		"SK": &types.AttributeValueMemberS{Value: models.RatingSK()},
	}
}
