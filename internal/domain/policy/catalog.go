package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
	"github.com/garyjia/travel-approval/pkg/utils"
)

// ErrUnknownGrade is returned when no limits are configured for a grade
var ErrUnknownGrade = errors.New("unknown employee grade")

// DefaultCurrency is the currency the compiled-in limits are expressed in
const DefaultCurrency = "INR"

// DefaultLimits are the grade limits used when configuration does not override them
var DefaultLimits = []entity.PolicyLimit{
	{Grade: "L1", FlightClass: entity.FlightEconomy, HotelCapPerNight: 3000, PerDiem: 1000, TripBudgetCap: 50000},
	{Grade: "L2", FlightClass: entity.FlightEconomy, HotelCapPerNight: 5000, PerDiem: 1500, TripBudgetCap: 100000},
	{Grade: "L3", FlightClass: entity.FlightPremiumEconomy, HotelCapPerNight: 8000, PerDiem: 2500, TripBudgetCap: 200000},
	{Grade: "L4", FlightClass: entity.FlightBusiness, HotelCapPerNight: 12000, PerDiem: 4000, TripBudgetCap: 400000},
	{Grade: "L5", FlightClass: entity.FlightBusiness, HotelCapPerNight: 20000, PerDiem: 6000, TripBudgetCap: 800000},
}

// Trip is the cost profile of a request as seen by the policy check
type Trip struct {
	Estimate entity.CostEstimate
	Nights   int
	Days     int
	Total    float64
}

// Itemized returns the cost implied by the estimate: the flight plus the
// nightly rate for every night and the allowance for every day
func (t Trip) Itemized() float64 {
	return t.Estimate.FlightCost +
		t.Estimate.HotelNightlyRate*float64(t.Nights) +
		t.Estimate.DailyAllowance*float64(t.Days)
}

// TripFor builds the trip profile of req for the given workflow type
func TripFor(req *entity.TravelRequest, wfType entity.WorkflowType) Trip {
	return Trip{
		Estimate: req.Estimate,
		Nights:   req.Nights(),
		Days:     req.Days(),
		Total:    req.EffectiveCost(wfType),
	}
}

// Catalog is a read-only lookup of per-grade travel limits
type Catalog struct {
	currency string
	limits   map[string]entity.PolicyLimit
}

// NewCatalog creates a catalog from the defaults with overrides applied by grade
func NewCatalog(currency string, overrides []entity.PolicyLimit) (*Catalog, error) {
	if currency == "" {
		currency = DefaultCurrency
	}

	c := &Catalog{
		currency: currency,
		limits:   make(map[string]entity.PolicyLimit, len(DefaultLimits)+len(overrides)),
	}
	for _, l := range DefaultLimits {
		c.limits[l.Grade] = l
	}
	for _, l := range overrides {
		if strings.TrimSpace(l.Grade) == "" {
			return nil, fmt.Errorf("policy override without grade")
		}
		if l.FlightClass.Rank() == 0 {
			return nil, fmt.Errorf("grade %s: unknown flight class %q", l.Grade, l.FlightClass)
		}
		if l.HotelCapPerNight < 0 || l.PerDiem < 0 || l.TripBudgetCap < 0 {
			return nil, fmt.Errorf("grade %s: limits must not be negative", l.Grade)
		}
		c.limits[l.Grade] = l
	}

	return c, nil
}

// Currency returns the currency all limits are expressed in
func (c *Catalog) Currency() string {
	return c.currency
}

// LimitsFor returns the limits of a grade
func (c *Catalog) LimitsFor(grade string) (entity.PolicyLimit, error) {
	l, ok := c.limits[grade]
	if !ok {
		return entity.PolicyLimit{}, fmt.Errorf("%w: %q", ErrUnknownGrade, grade)
	}
	return l, nil
}

// Grades returns all known grades, sorted
func (c *Catalog) Grades() []string {
	grades := make([]string, 0, len(c.limits))
	for g := range c.limits {
		grades = append(grades, g)
	}
	sort.Strings(grades)
	return grades
}

// ValidateRequest checks a travel request's fields and that its grade is known
func (c *Catalog) ValidateRequest(req *entity.TravelRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrInvalidRequest, err)
	}
	if _, err := c.LimitsFor(req.Grade); err != nil {
		return err
	}
	return nil
}

// IsOverBudget compares a trip against the grade's caps. The reason names
// every dimension that triggered, separated by "; ".
func (c *Catalog) IsOverBudget(grade string, trip Trip) (bool, string, error) {
	limit, err := c.LimitsFor(grade)
	if err != nil {
		return false, "", err
	}

	var reasons []string

	if cls := trip.Estimate.FlightClass; cls != "" && cls.Rank() > limit.FlightClass.Rank() {
		reasons = append(reasons, fmt.Sprintf("flight: %s above allowed %s", cls, limit.FlightClass))
	}
	if rate := trip.Estimate.HotelNightlyRate; rate > limit.HotelCapPerNight {
		reasons = append(reasons, fmt.Sprintf("hotel: %.2f %s per night above cap %.2f", rate, c.currency, limit.HotelCapPerNight))
	}
	if allowance := trip.Estimate.DailyAllowance; allowance > limit.PerDiem {
		reasons = append(reasons, fmt.Sprintf("per-diem: %.2f %s above cap %.2f", allowance, c.currency, limit.PerDiem))
	}
	if limit.TripBudgetCap > 0 {
		switch itemized := trip.Itemized(); {
		case trip.Total > limit.TripBudgetCap:
			reasons = append(reasons, fmt.Sprintf("budget: %.2f %s above trip cap %.2f", trip.Total, c.currency, limit.TripBudgetCap))
		case itemized > limit.TripBudgetCap:
			// a low declared total does not hide an itemized estimate over the cap
			reasons = append(reasons, fmt.Sprintf("budget: itemized %.2f %s (%d nights, %d days) above trip cap %.2f",
				itemized, c.currency, trip.Nights, trip.Days, limit.TripBudgetCap))
		}
	}

	if len(reasons) == 0 {
		return false, "", nil
	}
	return true, strings.Join(reasons, "; "), nil
}
