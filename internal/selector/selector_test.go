package selector

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearby-offers/internal/models"
)

var checkin = time.Date(2019, 12, 25, 0, 0, 0, 0, time.UTC)

func id(v string) models.Identifier {
	return models.Identifier(`"` + v + `"`)
}

func merchant(name string, distance float64) models.Merchant {
	raw := fmt.Sprintf(`{"id":%q,"name":"Merchant %s","distance":%v}`, name, name, distance)
	return models.Merchant{ID: id(name), Distance: distance, Raw: json.RawMessage(raw)}
}

func offer(offerID string, category models.CategoryCode, validDays int, distances ...float64) models.Offer {
	validUntil := checkin.AddDate(0, 0, validDays)
	o := models.Offer{
		ID:          id(offerID),
		Title:       models.Text("Title " + offerID),
		Description: models.Text("Description " + offerID),
		Category:    category,
		ValidTo:     validUntil.Format(models.DateLayout),
		ValidUntil:  validUntil,
	}
	for i, d := range distances {
		o.Merchants = append(o.Merchants, merchant(fmt.Sprintf("%s-m%d", offerID, i+1), d))
	}
	return o
}

func ids(offers []models.SelectedOffer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.ID.String())
	}
	return out
}

func TestEligible_ValidityBoundary(t *testing.T) {
	assert.True(t, Eligible(offer("a", models.CategoryRestaurant, 5, 1), checkin), "exactly 5 days out qualifies")
	assert.True(t, Eligible(offer("b", models.CategoryRestaurant, 30, 1), checkin))
	assert.False(t, Eligible(offer("c", models.CategoryRestaurant, 4, 1), checkin), "4 days out is too soon")
	assert.False(t, Eligible(offer("d", models.CategoryRestaurant, -1, 1), checkin))
}

func TestEligible_Categories(t *testing.T) {
	assert.True(t, Eligible(offer("r", models.CategoryRestaurant, 10, 1), checkin))
	assert.True(t, Eligible(offer("s", models.CategoryRetail, 10, 1), checkin))
	assert.True(t, Eligible(offer("a", models.CategoryActivity, 10, 1), checkin))
	assert.False(t, Eligible(offer("h", models.CategoryHotel, 10, 1), checkin))
}

func TestNearestMerchant(t *testing.T) {
	o := offer("x", models.CategoryRetail, 10, 5, 2, 8)
	assert.Equal(t, 2.0, NearestMerchant(o.Merchants).Distance)
	assert.Equal(t, "x-m2", NearestMerchant(o.Merchants).ID.String())

	tie := offer("y", models.CategoryRetail, 10, 2, 2, 5)
	assert.Equal(t, "y-m1", NearestMerchant(tie.Merchants).ID.String(), "first listed minimum wins")
}

func TestSelect_HotelNeverSelected(t *testing.T) {
	offers := models.OfferCollection{
		offer("hotel", models.CategoryHotel, 100, 0.1),
	}

	table := Select(offers, checkin)
	assert.Empty(t, table.Winners())
	_, ok := table.Get(models.CategoryHotel)
	assert.False(t, ok)
}

func TestSelect_OneWinnerPerCategory(t *testing.T) {
	offers := models.OfferCollection{
		offer("far", models.CategoryRestaurant, 10, 7),
		offer("near", models.CategoryRestaurant, 10, 3),
		offer("farther", models.CategoryRestaurant, 10, 9),
	}

	table := Select(offers, checkin)
	winner, ok := table.Get(models.CategoryRestaurant)
	require.True(t, ok)
	assert.Equal(t, "near", winner.ID.String())
	assert.Len(t, table.Winners(), 1)
}

func TestSelect_CategoryTieKeepsFirstSeen(t *testing.T) {
	offers := models.OfferCollection{
		offer("first", models.CategoryActivity, 10, 4),
		offer("second", models.CategoryActivity, 10, 4),
	}

	table := Select(offers, checkin)
	winner, ok := table.Get(models.CategoryActivity)
	require.True(t, ok)
	assert.Equal(t, "first", winner.ID.String())
}

func TestSelect_IneligibleOffersDoNotCompete(t *testing.T) {
	offers := models.OfferCollection{
		offer("expiring", models.CategoryRetail, 2, 0.5),
		offer("valid", models.CategoryRetail, 6, 5),
	}

	table := Select(offers, checkin)
	winner, ok := table.Get(models.CategoryRetail)
	require.True(t, ok)
	assert.Equal(t, "valid", winner.ID.String())
}

func TestRank_TopTwoByDistance(t *testing.T) {
	offers := models.OfferCollection{
		offer("restaurant", models.CategoryRestaurant, 10, 10),
		offer("retail", models.CategoryRetail, 10, 2),
		offer("activity", models.CategoryActivity, 10, 6),
	}

	got := Filter(offers, checkin)
	assert.Equal(t, []string{"retail", "activity"}, ids(got))
	assert.Equal(t, 2.0, got[0].Distance())
	assert.Equal(t, 6.0, got[1].Distance())
}

func TestRank_FewerThanLimit(t *testing.T) {
	offers := models.OfferCollection{
		offer("only", models.CategoryRetail, 10, 2),
		offer("hotel", models.CategoryHotel, 10, 1),
	}

	assert.Equal(t, []string{"only"}, ids(Filter(offers, checkin)))
}

func TestRank_DistanceTieKeepsCategoryOrder(t *testing.T) {
	offers := models.OfferCollection{
		offer("activity", models.CategoryActivity, 10, 1),
		offer("retail", models.CategoryRetail, 10, 1),
		offer("restaurant", models.CategoryRestaurant, 10, 1),
	}

	assert.Equal(t, []string{"restaurant", "retail"}, ids(Filter(offers, checkin)))
}

func TestFilter_EmptyResult(t *testing.T) {
	offers := models.OfferCollection{
		offer("soon", models.CategoryRestaurant, 1, 1),
		offer("hotel", models.CategoryHotel, 30, 1),
	}

	got := Filter(offers, checkin)
	require.NotNil(t, got)
	assert.Empty(t, got)

	out, err := models.NewOutputDocument(got).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"offers": []}`, string(out))
}

func TestFilter_OutputKeepsNearestMerchantAndScalars(t *testing.T) {
	source := offer("dinner", models.CategoryRestaurant, 10, 5, 2, 8)

	got := Filter(models.OfferCollection{source}, checkin)
	require.Len(t, got, 1)

	selected := got[0]
	assert.Equal(t, source.ID.String(), selected.ID.String())
	assert.Equal(t, source.Title, selected.Title)
	assert.Equal(t, source.Description, selected.Description)
	assert.Equal(t, source.Category, selected.Category)
	assert.Equal(t, source.ValidTo, selected.ValidTo)
	require.Len(t, selected.Merchants, 1)
	assert.JSONEq(t, string(source.Merchants[1].Raw), string(selected.Merchants[0].Raw))
}

func TestFilter_DoesNotAliasInput(t *testing.T) {
	source := offer("dinner", models.CategoryRestaurant, 10, 1)
	got := Filter(models.OfferCollection{source}, checkin)
	require.Len(t, got, 1)

	source.Merchants[0].Raw[0] = 'X'
	source.ID[0] = 'X'
	assert.Equal(t, byte('{'), got[0].Merchants[0].Raw[0])
	assert.Equal(t, "dinner", got[0].ID.String())
}

func TestOutputDocument_FieldOrder(t *testing.T) {
	doc := models.NewOutputDocument([]models.SelectedOffer{{
		ID:          models.Identifier(`1`),
		Title:       models.Text("T"),
		Description: models.Text("D"),
		Category:    models.CategoryRetail,
		Merchants:   []models.Merchant{{Raw: json.RawMessage(`{"id":2,"name":"M","distance":1.5}`)}},
		ValidTo:     "2020-01-01",
	}})

	out, err := doc.Encode()
	require.NoError(t, err)

	want := `{
  "offers": [
    {
      "id": 1,
      "title": "T",
      "description": "D",
      "category": 2,
      "merchants": [
        {
          "id": 2,
          "name": "M",
          "distance": 1.5
        }
      ],
      "valid_to": "2020-01-01"
    }
  ]
}
`
	assert.Equal(t, want, string(out))
}
