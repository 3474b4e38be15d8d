// Package selector picks the offers shown to a traveler: the nearest
// eligible offer per category, ranked by distance and capped.
package selector

import (
	"sort"
	"time"

	"nearby-offers/internal/models"
)

const (
	// MinValidityDays is how many days after check-in an offer must still
	// be valid. An offer expiring exactly on that day qualifies.
	MinValidityDays = 5
	// MaxResults caps the final selection.
	MaxResults = 2
)

// WinnerTable holds at most one selected offer per eligible category.
type WinnerTable struct {
	slots [len(models.EligibleCategories)]*models.SelectedOffer
}

func slotIndex(c models.CategoryCode) (int, bool) {
	for i, e := range models.EligibleCategories {
		if c == e {
			return i, true
		}
	}
	return 0, false
}

// Get returns the winner for category c, if any.
func (t *WinnerTable) Get(c models.CategoryCode) (models.SelectedOffer, bool) {
	i, ok := slotIndex(c)
	if !ok || t.slots[i] == nil {
		return models.SelectedOffer{}, false
	}
	return *t.slots[i], true
}

// Winners returns the non-empty slots in category order.
func (t *WinnerTable) Winners() []models.SelectedOffer {
	winners := make([]models.SelectedOffer, 0, len(t.slots))
	for _, s := range t.slots {
		if s != nil {
			winners = append(winners, *s)
		}
	}
	return winners
}

// offer replaces the category winner when candidate is strictly closer.
func (t *WinnerTable) offer(candidate models.SelectedOffer) {
	i, ok := slotIndex(candidate.Category)
	if !ok {
		return
	}
	if cur := t.slots[i]; cur == nil || cur.Distance() > candidate.Distance() {
		t.slots[i] = &candidate
	}
}

// Eligible reports whether offer may be selected for a stay starting on checkin.
func Eligible(offer models.Offer, checkin time.Time) bool {
	if !offer.Category.Eligible() {
		return false
	}
	return !offer.ValidUntil.Before(checkin.AddDate(0, 0, MinValidityDays))
}

// NearestMerchant returns the merchant with the smallest distance. On ties
// the earliest merchant in the list wins. merchants must not be empty.
func NearestMerchant(merchants []models.Merchant) models.Merchant {
	nearest := merchants[0]
	for _, m := range merchants[1:] {
		if m.Distance < nearest.Distance {
			nearest = m
		}
	}
	return nearest
}

// Select builds the per-category winner table. Offers are visited in
// input order, so the first offer seen wins a distance tie.
func Select(offers models.OfferCollection, checkin time.Time) WinnerTable {
	var table WinnerTable
	for _, offer := range offers {
		if !Eligible(offer, checkin) {
			continue
		}
		table.offer(models.SelectedOffer{
			ID:          offer.ID.Clone(),
			Title:       offer.Title.Clone(),
			Description: offer.Description.Clone(),
			Category:    offer.Category,
			RawCategory: offer.RawCategory.Clone(),
			Merchants:   []models.Merchant{NearestMerchant(offer.Merchants).Clone()},
			ValidTo:     offer.ValidTo,
		})
	}
	return table
}

// Rank orders the winners by distance and keeps the first limit of them.
// Equal distances keep category order. The result is never nil.
func Rank(table WinnerTable, limit int) []models.SelectedOffer {
	ranked := table.Winners()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance() < ranked[j].Distance()
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Filter runs selection and ranking with the default result cap.
func Filter(offers models.OfferCollection, checkin time.Time) []models.SelectedOffer {
	return Rank(Select(offers, checkin), MaxResults)
}
