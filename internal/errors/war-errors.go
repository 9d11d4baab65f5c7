package errors

import (
	"fmt"
	"strings"

	apperrors "github.com/kaanbarutcu/warseason/errors"
)

func DeclarationRejectedError(reasons []string) *apperrors.AppError {
	return apperrors.New(
		apperrors.CodeDeclarationRejected,
		fmt.Sprintf("war declaration rejected: %s", strings.Join(reasons, "; ")),
	)
}

func MatchmakingRejectedError(reasons []string) *apperrors.AppError {
	return apperrors.New(
		apperrors.CodeMatchmakingRejected,
		fmt.Sprintf("matchmaking rejected: %s", strings.Join(reasons, "; ")),
	)
}

func BracketAlreadyGeneratedError(seasonNumber, weekNumber int) *apperrors.AppError {
	return apperrors.New(
		apperrors.CodeBracketGenerated,
		fmt.Sprintf("brackets already generated for season %d week %d", seasonNumber, weekNumber),
	)
}

func OutsideGenerationWindowError() *apperrors.AppError {
	return apperrors.New(
		apperrors.CodeOutsideWindow,
		"outside the bracket generation window",
	)
}

func RatingUnavailableError(factionID string) *apperrors.AppError {
	return apperrors.New(
		apperrors.CodeNotFound,
		fmt.Sprintf("no power rating available for faction %s", factionID),
	)
}
