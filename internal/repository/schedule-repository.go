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

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.WeekSchedule) error
	Get(ctx context.Context, seasonNumber, weekNumber int) (*models.WeekSchedule, error)
	// UpdatePhase persists a phase transition conditionally on the phase
	// it is transitioning from. A false return means another instance
	// already moved the schedule on.
	UpdatePhase(ctx context.Context, seasonNumber, weekNumber int, fromPhase, toPhase string) (bool, error)
	SetWarSets(ctx context.Context, seasonNumber, weekNumber int, declared, active, resolved []string) error

	AddTournamentParticipant(ctx context.Context, seasonNumber, weekNumber int, entry models.TournamentEntry) error
	// SaveBrackets flips bracket_generated exactly once; a false return
	// means the week's brackets were already generated.
	SaveBrackets(ctx context.Context, seasonNumber, weekNumber int, brackets []models.TournamentBracket) (bool, error)
	UpdateBrackets(ctx context.Context, seasonNumber, weekNumber int, brackets []models.TournamentBracket) error

	// Transactions
	GetTransactionForDeclaredWar(seasonNumber, weekNumber int, warID string) types.Update
}

type scheduleRepo struct {
	db *database.DynamoDBClient
}

func NewScheduleRepository(db *database.DynamoDBClient) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *models.WeekSchedule) error {
	schedule.PK = models.SeasonPK(schedule.SeasonNumber)
	schedule.SK = models.WeekSK(schedule.WeekNumber)
	schedule.CreatedAt = time.Now()

	item, err := attributevalue.MarshalMap(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.New(apperrors.CodeAlreadyExists, "week schedule already exists")
		}
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

func (r *scheduleRepo) Get(ctx context.Context, seasonNumber, weekNumber int) (*models.WeekSchedule, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       weekKey(seasonNumber, weekNumber),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "week schedule not found")
	}

	var schedule models.WeekSchedule
	if err := attributevalue.UnmarshalMap(result.Item, &schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}

	return &schedule, nil
}

func (r *scheduleRepo) UpdatePhase(
	ctx context.Context,
	seasonNumber, weekNumber int,
	fromPhase, toPhase string,
) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              weekKey(seasonNumber, weekNumber),
		UpdateExpression: aws.String("SET phase = :to, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":   &types.AttributeValueMemberS{Value: toPhase},
			":from": &types.AttributeValueMemberS{Value: fromPhase},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND phase = :from"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update phase: %w", err)
	}

	return true, nil
}

func (r *scheduleRepo) SetWarSets(
	ctx context.Context,
	seasonNumber, weekNumber int,
	declared, active, resolved []string,
) error {
	declaredAV, err := attributevalue.Marshal(nonNil(declared))
	if err != nil {
		return fmt.Errorf("failed to marshal declared set: %w", err)
	}
	activeAV, err := attributevalue.Marshal(nonNil(active))
	if err != nil {
		return fmt.Errorf("failed to marshal active set: %w", err)
	}
	resolvedAV, err := attributevalue.Marshal(nonNil(resolved))
	if err != nil {
		return fmt.Errorf("failed to marshal resolved set: %w", err)
	}

	_, err = r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       weekKey(seasonNumber, weekNumber),
		UpdateExpression: aws.String(
			"SET declared_war_ids = :d, active_war_ids = :a, resolved_war_ids = :r, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":   declaredAV,
			":a":   activeAV,
			":r":   resolvedAV,
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to set war sets: %w", err)
	}

	return nil
}

func (r *scheduleRepo) AddTournamentParticipant(
	ctx context.Context,
	seasonNumber, weekNumber int,
	entry models.TournamentEntry,
) error {
	entryAV, err := attributevalue.Marshal([]models.TournamentEntry{entry})
	if err != nil {
		return fmt.Errorf("failed to marshal tournament entry: %w", err)
	}
	emptyAV, err := attributevalue.Marshal([]models.TournamentEntry{})
	if err != nil {
		return fmt.Errorf("failed to marshal empty entry list: %w", err)
	}

	_, err = r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       weekKey(seasonNumber, weekNumber),
		UpdateExpression: aws.String(
			"SET tournament.participants = list_append(if_not_exists(tournament.participants, :empty), :entry), updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entry": entryAV,
			":empty": emptyAV,
			":now":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to add tournament participant: %w", err)
	}

	return nil
}

func (r *scheduleRepo) SaveBrackets(
	ctx context.Context,
	seasonNumber, weekNumber int,
	brackets []models.TournamentBracket,
) (bool, error) {
	bracketsAV, err := attributevalue.Marshal(brackets)
	if err != nil {
		return false, fmt.Errorf("failed to marshal brackets: %w", err)
	}

	_, err = r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key:       weekKey(seasonNumber, weekNumber),
		UpdateExpression: aws.String(
			"SET tournament.brackets = :b, tournament.bracket_generated = :true, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b":     bracketsAV,
			":true":  &types.AttributeValueMemberBOOL{Value: true},
			":false": &types.AttributeValueMemberBOOL{Value: false},
			":now":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND tournament.bracket_generated = :false"),
	})

	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save brackets: %w", err)
	}

	return true, nil
}

func (r *scheduleRepo) UpdateBrackets(
	ctx context.Context,
	seasonNumber, weekNumber int,
	brackets []models.TournamentBracket,
) error {
	bracketsAV, err := attributevalue.Marshal(brackets)
	if err != nil {
		return fmt.Errorf("failed to marshal brackets: %w", err)
	}

	_, err = r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              weekKey(seasonNumber, weekNumber),
		UpdateExpression: aws.String("SET tournament.brackets = :b, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b":   bracketsAV,
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})

	if err != nil {
		return fmt.Errorf("failed to update brackets: %w", err)
	}

	return nil
}

// Transactions

func (r *scheduleRepo) GetTransactionForDeclaredWar(seasonNumber, weekNumber int, warID string) types.Update {
	return types.Update{
		TableName: aws.String(r.db.Table()),
		Key:       weekKey(seasonNumber, weekNumber),
		UpdateExpression: aws.String(
			"SET declared_war_ids = list_append(if_not_exists(declared_war_ids, :empty), :war)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":war":   &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: warID}}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
}

func weekKey(seasonNumber, weekNumber int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.SeasonPK(seasonNumber)},
		"SK": &types.AttributeValueMemberS{Value: models.WeekSK(weekNumber)},
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
