package checkout

import (
	"math"

	"glowhair/internal/models"
)

// TaxRate is the flat tax applied to the merchandise subtotal.
const TaxRate = 0.16

// Flat delivery fees by destination. Destinations outside the table ship
// destination-paid: the carrier collects the fee on delivery, so it is
// excluded from the prepaid total.
const (
	shippingFeeMontevideo = 160.0
	shippingFeeCanelones  = 250.0
)

// Quote prices a cart for a delivery method and destination city. It is
// the single pricing function for the whole service: the cart totals
// endpoint, the checkout workflow, and the order payload all go through
// it. Subtotal, tax, shipping and total are each rounded to 2 decimals
// independently.
func Quote(items []models.CartItem, deliveryMethod, city string) models.Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Subtotal()
	}

	tax := subtotal * TaxRate

	var shipping float64
	dueOnDelivery := false
	switch {
	case deliveryMethod == models.DeliveryMethodPickup:
		shipping = 0
	case city == models.CityMontevideo:
		shipping = shippingFeeMontevideo
	case city == models.CityCanelones:
		shipping = shippingFeeCanelones
	default:
		// Destination-paid shipping: charged by the carrier on arrival,
		// never part of the checkout total.
		shipping = 0
		dueOnDelivery = true
	}

	return models.Totals{
		Subtotal:              round2(subtotal),
		Shipping:              round2(shipping),
		Tax:                   round2(tax),
		Total:                 round2(subtotal + tax + shipping),
		ShippingDueOnDelivery: dueOnDelivery,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
