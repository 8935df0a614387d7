package order

import (
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeFor(t *testing.T) {
	rates := DefaultDeliveryRates()

	cases := []struct {
		name    string
		city    string
		address string
		want    string
	}{
		{"city matches", "Dhaka", "House 1", "70"},
		{"case insensitive", "DHAKA", "", "70"},
		{"address mentions zone", "Savar", "Road 3, near Dhaka bypass", "70"},
		{"outside zone", "Chattogram", "Agrabad", "130"},
		{"empty", "", "", "130"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireDecimal(t, tc.want, rates.ChargeFor(tc.city, tc.address))
		})
	}
}

func TestUnitPrice(t *testing.T) {
	p := model.Product{Price: decimal.RequireFromString("100")}

	requireDecimal(t, "100", UnitPrice(p, nil))
	requireDecimal(t, "80", UnitPrice(p, &model.FlashSale{DiscountPercentage: decimal.RequireFromString("20")}))
	requireDecimal(t, "0", UnitPrice(p, &model.FlashSale{DiscountPercentage: decimal.RequireFromString("100")}))

	odd := model.Product{Price: decimal.RequireFromString("99.99")}
	requireDecimal(t, "66.66", UnitPrice(odd, &model.FlashSale{DiscountPercentage: decimal.RequireFromString("33.33")}))
}

func TestTotals(t *testing.T) {
	pricing := NewPricing(DefaultDeliveryRates())
	lines := []model.OrderLine{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("150.50")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("99")},
	}

	got := pricing.Totals(lines, decimal.Zero, "Dhaka", "")
	requireDecimal(t, "400", got.Total)
	requireDecimal(t, "0", got.Discount)
	requireDecimal(t, "70", got.Delivery)
	requireDecimal(t, "470", got.Final)

	clamped := pricing.Totals(lines, decimal.NewFromInt(1000), "Sylhet", "")
	requireDecimal(t, "0", clamped.Final)
}

func TestActiveFlashSale(t *testing.T) {
	db := database.OpenTemp(t)
	pricing := NewPricing(DefaultDeliveryRates())
	p := seedProduct(t, db, "Fan", "100", 5)
	now := time.Now().UTC()

	sale, err := pricing.ActiveFlashSale(db, p.ID, now)
	require.NoError(t, err)
	assert.Nil(t, sale)

	seedFlashSale(t, db, p.ID, "50", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	seedFlashSale(t, db, p.ID, "10", now.Add(time.Hour), now.Add(2*time.Hour))
	sale, err = pricing.ActiveFlashSale(db, p.ID, now)
	require.NoError(t, err)
	assert.Nil(t, sale, "expired and future sales do not apply")

	first := seedFlashSale(t, db, p.ID, "20", now.Add(-time.Hour), now.Add(time.Hour))
	seedFlashSale(t, db, p.ID, "30", now.Add(-time.Hour), now.Add(time.Hour))

	sale, err = pricing.ActiveFlashSale(db, p.ID, now)
	require.NoError(t, err)
	require.NotNil(t, sale)
	assert.Equal(t, first.ID, sale.ID)

	price, err := pricing.UnitPriceFor(db, p, now)
	require.NoError(t, err)
	requireDecimal(t, "80", price)
}
