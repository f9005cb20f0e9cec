package policy

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/workflow"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog("", nil)
	require.NoError(t, err)
	return c
}

func TestCatalog_LimitsFor(t *testing.T) {
	c := newTestCatalog(t)

	l2, err := c.LimitsFor("L2")
	require.NoError(t, err)
	assert.Equal(t, entity.FlightEconomy, l2.FlightClass)
	assert.Equal(t, 5000.0, l2.HotelCapPerNight)
	assert.Equal(t, 1500.0, l2.PerDiem)

	_, err = c.LimitsFor("L9")
	assert.ErrorIs(t, err, ErrUnknownGrade)

	assert.Equal(t, DefaultCurrency, c.Currency())
	assert.Equal(t, []string{"L1", "L2", "L3", "L4", "L5"}, c.Grades())
}

func TestCatalog_Overrides(t *testing.T) {
	c, err := NewCatalog("USD", []entity.PolicyLimit{
		{Grade: "L2", FlightClass: entity.FlightBusiness, HotelCapPerNight: 200, PerDiem: 80, TripBudgetCap: 5000},
		{Grade: "EXEC", FlightClass: entity.FlightFirst, HotelCapPerNight: 900, PerDiem: 300},
	})
	require.NoError(t, err)

	l2, err := c.LimitsFor("L2")
	require.NoError(t, err)
	assert.Equal(t, entity.FlightBusiness, l2.FlightClass)

	_, err = c.LimitsFor("EXEC")
	assert.NoError(t, err)
	assert.Equal(t, "USD", c.Currency())

	_, err = NewCatalog("", []entity.PolicyLimit{{Grade: "L1", FlightClass: "ROCKET"}})
	assert.Error(t, err)

	_, err = NewCatalog("", []entity.PolicyLimit{{FlightClass: entity.FlightEconomy}})
	assert.Error(t, err)
}

func TestCatalog_IsOverBudget(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name       string
		grade      string
		trip       Trip
		over       bool
		dimensions []string
	}{
		{
			name:  "within limits",
			grade: "L2",
			trip: Trip{
				Estimate: entity.CostEstimate{FlightClass: entity.FlightEconomy, HotelNightlyRate: 4000, DailyAllowance: 1200},
				Total:    40000,
			},
		},
		{
			name:       "flight class above grade",
			grade:      "L2",
			trip:       Trip{Estimate: entity.CostEstimate{FlightClass: entity.FlightBusiness}, Total: 20000},
			over:       true,
			dimensions: []string{"flight"},
		},
		{
			name:       "hotel and per-diem",
			grade:      "L1",
			trip:       Trip{Estimate: entity.CostEstimate{HotelNightlyRate: 3500, DailyAllowance: 1100}, Total: 10000},
			over:       true,
			dimensions: []string{"hotel", "per-diem"},
		},
		{
			name:       "total above trip cap",
			grade:      "L2",
			trip:       Trip{Total: 150000},
			over:       true,
			dimensions: []string{"budget"},
		},
		{
			name:  "itemized stay above trip cap",
			grade: "L2",
			trip: Trip{
				Estimate: entity.CostEstimate{FlightCost: 30000, HotelNightlyRate: 5000, DailyAllowance: 1500},
				Nights:   14,
				Days:     15,
				Total:    40000,
			},
			over:       true,
			dimensions: []string{"budget"},
		},
		{
			name:  "itemized stay within trip cap",
			grade: "L2",
			trip: Trip{
				Estimate: entity.CostEstimate{FlightCost: 30000, HotelNightlyRate: 5000, DailyAllowance: 1500},
				Nights:   10,
				Days:     11,
				Total:    40000,
			},
		},
		{
			name:       "declared and itemized both above cap report once",
			grade:      "L1",
			trip:       Trip{Estimate: entity.CostEstimate{FlightCost: 60000}, Nights: 1, Days: 2, Total: 70000},
			over:       true,
			dimensions: []string{"budget"},
		},
		{
			name:  "unset flight class is not checked",
			grade: "L1",
			trip:  Trip{Total: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			over, reason, err := c.IsOverBudget(tt.grade, tt.trip)
			require.NoError(t, err)
			assert.Equal(t, tt.over, over)
			if !tt.over {
				assert.Empty(t, reason)
				return
			}
			parts := strings.Split(reason, "; ")
			require.Len(t, parts, len(tt.dimensions))
			for i, dim := range tt.dimensions {
				assert.True(t, strings.HasPrefix(parts[i], dim+":"), "reason %q should name %s", parts[i], dim)
			}
		})
	}

	_, _, err := c.IsOverBudget("X", Trip{})
	assert.ErrorIs(t, err, ErrUnknownGrade)
}

func TestTripFor(t *testing.T) {
	dep := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	actual := 90000.0
	req := &entity.TravelRequest{
		DepartureDate:   dep,
		ReturnDate:      dep.Add(72 * time.Hour),
		EstimatedBudget: 60000,
		ActualCost:      &actual,
	}

	pre := TripFor(req, entity.WorkflowPreTravel)
	assert.Equal(t, 3, pre.Nights)
	assert.Equal(t, 4, pre.Days)
	assert.Equal(t, 60000.0, pre.Total)
	assert.Zero(t, pre.Itemized())

	req.Estimate = entity.CostEstimate{FlightCost: 8000, HotelNightlyRate: 3000, DailyAllowance: 500}
	assert.Equal(t, 8000.0+3*3000+4*500, TripFor(req, entity.WorkflowPreTravel).Itemized())

	post := TripFor(req, entity.WorkflowPostTravel)
	assert.Equal(t, 90000.0, post.Total)
}

func TestCatalog_ValidateRequest(t *testing.T) {
	c := newTestCatalog(t)
	dep := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	valid := entity.TravelRequest{
		RequesterID:   "emp-1",
		Grade:         "L2",
		Destination:   "Delhi",
		DepartureDate: dep,
		ReturnDate:    dep.Add(24 * time.Hour),
		Purpose:       "audit",
	}

	assert.NoError(t, c.ValidateRequest(&valid))

	missing := valid
	missing.Destination = ""
	assert.ErrorIs(t, c.ValidateRequest(&missing), workflow.ErrInvalidRequest)

	backwards := valid
	backwards.ReturnDate = dep.Add(-time.Hour)
	assert.ErrorIs(t, c.ValidateRequest(&backwards), workflow.ErrInvalidRequest)

	unknown := valid
	unknown.Grade = "Z9"
	assert.ErrorIs(t, c.ValidateRequest(&unknown), ErrUnknownGrade)
}
