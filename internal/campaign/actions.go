package campaign

import (
	"fmt"
	"unicode/utf8"

	"github.com/example/faithconnect/internal/models"
)

// minDescriptionRunes is the length a description must exceed to count.
const minDescriptionRunes = 50

// profileFieldCount is the denominator of ProfileCompletion.
const profileFieldCount = 9

// ErrUnknownActionType is returned for action types outside the supported set.
type ErrUnknownActionType struct {
	Type models.ActionType
}

func (e ErrUnknownActionType) Error() string {
	return fmt.Sprintf("unknown action type %q", string(e.Type))
}

// Satisfies reports whether snap meets the requirement of actionType.
func Satisfies(snap models.BusinessSnapshot, actionType models.ActionType) (bool, error) {
	b := snap.Business
	switch actionType {
	case models.ActionAddLogo:
		return b.Logo != "", nil
	case models.ActionAddBanner:
		return b.Banner != "", nil
	case models.ActionAddDescription:
		return utf8.RuneCountInString(b.Description) > minDescriptionRunes, nil
	case models.ActionAddProduct:
		return snap.ActiveProducts >= 1, nil
	case models.ActionAddService:
		return snap.ActiveServices >= 1, nil
	case models.ActionAdd5Products:
		return snap.ActiveProducts >= 5, nil
	case models.ActionAdd5Services:
		return snap.ActiveServices >= 5, nil
	case models.ActionGetVerified:
		return b.IsVerified, nil
	case models.ActionGetFirstReview:
		return b.ReviewCount >= 1, nil
	case models.ActionGet5Reviews:
		return b.ReviewCount >= 5, nil
	case models.ActionAddSocialLinks:
		return b.HasSocialLinks(), nil
	case models.ActionCompleteProfile:
		return ProfileCompletion(snap) >= 100, nil
	default:
		return false, ErrUnknownActionType{Type: actionType}
	}
}

// ProfileCompletion is the percentage of profile fields filled in. Offerings
// and social links count as one field each.
func ProfileCompletion(snap models.BusinessSnapshot) int {
	b := snap.Business
	count := 0
	for _, present := range []bool{
		b.Logo != "",
		b.Banner != "",
		b.Description != "",
		b.Phone != "",
		b.Email != "",
		b.Address != "",
		b.Website != "",
		snap.Products+snap.Services > 0,
		b.HasSocialLinks(),
	} {
		if present {
			count++
		}
	}
	return count * 100 / profileFieldCount
}
