package checkout

import (
	"strconv"
	"strings"
	"sync"

	"glowhair/internal/cart"
	"glowhair/internal/models"
	"glowhair/internal/util"
)

// Step identifies a position in the checkout wizard.
type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepDeliveryAddress
	StepPaymentMethod
	StepConfirmation
)

// Form holds the data collected across the four checkout steps. It lives
// only for the duration of the workflow and is never persisted.
type Form struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	DeliveryMethod string `json:"delivery_method"`

	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	PaymentMethod string `json:"payment_method"`

	CardNumber string `json:"card_number"`
	CardExpiry string `json:"card_expiry"`
	CardCVV    string `json:"card_cvv"`
	CardName   string `json:"card_name"`
}

// ShippingAddress returns the address snapshot for the order payload.
func (f Form) ShippingAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Address:    f.Address,
		City:       f.City,
		State:      f.State,
		PostalCode: f.PostalCode,
		Country:    f.Country,
	}
}

// Next advances the session one step if the current step validates.
// Validation failures block the transition and return per-field messages;
// the step index never moves past Confirmation.
func (s *Session) Next() (Step, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := validateStep(s.step, s.form)
	s.fieldErrors = errs
	if len(errs) > 0 {
		util.CheckoutStepsBlockedTotal.WithLabelValues(strconv.Itoa(int(s.step))).Inc()
		return s.step, errs
	}

	if s.step < StepConfirmation {
		s.step++
	}
	return s.step, nil
}

// Prev moves the session back one step. Going back never re-validates
// and never moves before PersonalInfo.
func (s *Session) Prev() Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fieldErrors = nil
	if s.step > StepPersonalInfo {
		s.step--
	}
	return s.step
}

// validateStep returns the field-level errors for one step. Steps 2 and 3
// are conditional: a pickup order has no required address fields, and
// card details are only required when paying by card.
func validateStep(step Step, f Form) map[string]string {
	errs := make(map[string]string)

	switch step {
	case StepPersonalInfo:
		requireField(errs, "first_name", f.FirstName, "First name is required")
		requireField(errs, "last_name", f.LastName, "Last name is required")
		requireField(errs, "email", f.Email, "Email is required")
		requireField(errs, "phone", f.Phone, "Phone is required")

	case StepDeliveryAddress:
		if f.DeliveryMethod == models.DeliveryMethodDelivery {
			requireField(errs, "address", f.Address, "Address is required")
			requireField(errs, "city", f.City, "City is required")
			requireField(errs, "state", f.State, "State is required")
			requireField(errs, "postal_code", f.PostalCode, "Postal code is required")
		}

	case StepPaymentMethod:
		if f.PaymentMethod == models.PaymentMethodCash && f.DeliveryMethod != models.DeliveryMethodPickup {
			errs["payment_method"] = "Cash is only available for pickup orders"
		}
		if f.PaymentMethod == models.PaymentMethodCard {
			requireField(errs, "card_number", f.CardNumber, "Card number is required")
			requireField(errs, "card_expiry", f.CardExpiry, "Expiry date is required")
			requireField(errs, "card_cvv", f.CardCVV, "CVV is required")
			requireField(errs, "card_name", f.CardName, "Cardholder name is required")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func requireField(errs map[string]string, field, value, message string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = message
	}
}

// Totals prices the session's cart with its current delivery selection.
func (s *Session) Totals() models.Totals {
	s.mu.Lock()
	method, city := s.form.DeliveryMethod, s.form.City
	s.mu.Unlock()
	return Quote(s.cart.Items(), method, city)
}

// Step returns the current step index.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Form returns a copy of the collected form data.
func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SetForm replaces the collected form data. Field errors from a previous
// blocked transition are kept until the next Next call re-validates.
func (s *Session) SetForm(f Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = f
}

// FieldErrors returns the errors from the last blocked transition.
func (s *Session) FieldErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		out[k] = v
	}
	return out
}

// Cart returns the cart store this session reads from.
func (s *Session) Cart() *cart.Store {
	return s.cart
}

// Manager tracks the live checkout sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Put registers a session under its id.
func (m *Manager) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// Get returns the session for id, or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Drop forgets a session. Abandoned form data is simply discarded.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
