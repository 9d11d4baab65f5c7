package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kaanbarutcu/warseason/database"
	apperrors "github.com/kaanbarutcu/warseason/errors"
	"github.com/kaanbarutcu/warseason/models"
)

// FactionSnapshotProvider supplies the faction state ratings are computed
// from. Faction records are owned by an external system; this default
// implementation reads the profile item they maintain in the shared table.
type FactionSnapshotProvider interface {
	GetSnapshot(ctx context.Context, factionID string) (*models.FactionSnapshot, error)
}

type factionSnapshotRepo struct {
	db *database.DynamoDBClient
}

func NewFactionSnapshotRepository(db *database.DynamoDBClient) FactionSnapshotProvider {
	return &factionSnapshotRepo{db: db}
}

func (r *factionSnapshotRepo) GetSnapshot(ctx context.Context, factionID string) (*models.FactionSnapshot, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.FactionPK(factionID)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get faction snapshot: %w", err)
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "faction snapshot not found")
	}

	var snapshot models.FactionSnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal faction snapshot: %w", err)
	}

	return &snapshot, nil
}
