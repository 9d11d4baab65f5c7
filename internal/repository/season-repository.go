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

type SeasonRepository interface {
	Create(ctx context.Context, season *models.Season) error
	GetActiveSeason(ctx context.Context) (*models.Season, error)
	GetByNumber(ctx context.Context, seasonNumber int) (*models.Season, error)
	SetCurrentWeek(ctx context.Context, seasonNumber, weekNumber int) error
	// Conclude is idempotent: concluding an already-concluded season
	// reports false without an error.
	Conclude(ctx context.Context, seasonNumber int, concludedAt time.Time) (bool, error)

	AddStandingDelta(ctx context.Context, seasonNumber int, factionID string, wins, losses, draws, score int) error
	ListStandings(ctx context.Context, seasonNumber int) ([]models.Standing, error)
}

type seasonRepo struct {
	db *database.DynamoDBClient
}

func NewSeasonRepository(db *database.DynamoDBClient) SeasonRepository {
	return &seasonRepo{db: db}
}

func (r *seasonRepo) Create(ctx context.Context, season *models.Season) error {
	season.PK = models.SeasonPK(season.SeasonNumber)
	season.SK = models.MetaSK()
	season.GSI1PK = models.SeasonActiveGSI1PK()
	season.GSI1SK = models.StartTimeGSI1SK(season.StartsAt.Format(time.RFC3339))
	season.CreatedAt = time.Now()

	item, err := attributevalue.MarshalMap(season)
	if err != nil {
		return fmt.Errorf("failed to marshal season: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.New(apperrors.CodeAlreadyExists, "season already exists")
		}
		return fmt.Errorf("failed to create season: %w", err)
	}

	return nil
}

func (r *seasonRepo) GetActiveSeason(ctx context.Context) (*models.Season, error) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: models.SeasonActiveGSI1PK()},
		},
		Limit: aws.Int32(1),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to query active season: %w", err)
	}

	if len(result.Items) <= 0 {
		return nil, apperrors.New(apperrors.CodeNoActiveSeason, "no active season")
	}

	var season models.Season
	if err := attributevalue.UnmarshalMap(result.Items[0], &season); err != nil {
		return nil, fmt.Errorf("failed to unmarshal season: %w", err)
	}

	return &season, nil
}

func (r *seasonRepo) GetByNumber(ctx context.Context, seasonNumber int) (*models.Season, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.SeasonPK(seasonNumber)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "season not found")
	}

	var season models.Season
	if err := attributevalue.UnmarshalMap(result.Item, &season); err != nil {
		return nil, fmt.Errorf("failed to unmarshal season: %w", err)
	}

	return &season, nil
}

func (r *seasonRepo) SetCurrentWeek(ctx context.Context, seasonNumber, weekNumber int) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.SeasonPK(seasonNumber)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression: aws.String("SET current_week = :week, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":week": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", weekNumber)},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to set current week: %w", err)
	}

	return nil
}

func (r *seasonRepo) Conclude(ctx context.Context, seasonNumber int, concludedAt time.Time) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.SeasonPK(seasonNumber)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		// Dropping the GSI1 keys removes the season from the
		// active-season index.
		UpdateExpression: aws.String("SET #st = :concluded, concluded_at = :at, updated_at = :at REMOVE GSI1PK, GSI1SK"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":concluded": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", int(models.SeasonConcluded))},
			":active":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", int(models.SeasonActive))},
			":at":        &types.AttributeValueMemberS{Value: concludedAt.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #st = :active"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to conclude season: %w", err)
	}

	return true, nil
}

func (r *seasonRepo) AddStandingDelta(
	ctx context.Context,
	seasonNumber int,
	factionID string,
	wins, losses, draws, score int,
) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.SeasonPK(seasonNumber)},
			"SK": &types.AttributeValueMemberS{Value: models.StandingSK(factionID)},
		},
		UpdateExpression: aws.String(
			"ADD wins :w, losses :l, draws :d, score :s SET season_number = :season, faction_id = :faction"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":w":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", wins)},
			":l":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", losses)},
			":d":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", draws)},
			":s":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", score)},
			":season":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", seasonNumber)},
			":faction": &types.AttributeValueMemberS{Value: factionID},
		},
	})

	if err != nil {
		return fmt.Errorf("failed to update standing: %w", err)
	}

	return nil
}

func (r *seasonRepo) ListStandings(ctx context.Context, seasonNumber int) ([]models.Standing, error) {
	result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: models.SeasonPK(seasonNumber)},
			":sk": &types.AttributeValueMemberS{Value: models.StandingSKPrefix()},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}

	standings := make([]models.Standing, 0, len(result.Items))
	for _, item := range result.Items {
		var standing models.Standing
		if err := attributevalue.UnmarshalMap(item, &standing); err != nil {
			return nil, fmt.Errorf("failed to unmarshal standing: %w", err)
		}
		standings = append(standings, standing)
	}

	return standings, nil
}
