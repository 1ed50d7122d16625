package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateBasis determines how a rate's price scales with the shipment.
type RateBasis string

// Rate bases.
const (
	// BasisPerContainer multiplies by the number of containers of the rate's type.
	BasisPerContainer RateBasis = "PER_CONTAINER"
	// BasisPerKg multiplies by gross weight in kilograms.
	BasisPerKg RateBasis = "PER_KG"
	// BasisPerCBM multiplies by volume in cubic metres.
	BasisPerCBM RateBasis = "PER_CBM"
	// BasisWeightOrMeasure multiplies by revenue tonnes, the greater of
	// weight in metric tonnes and volume in cubic metres.
	BasisWeightOrMeasure RateBasis = "WEIGHT_OR_MEASURE"
)

var kgPerTonne = decimal.NewFromInt(1000)

// Valid reports whether b is a known rate basis.
func (b RateBasis) Valid() bool {
	switch b {
	case BasisPerContainer, BasisPerKg, BasisPerCBM, BasisWeightOrMeasure:
		return true
	default:
		return false
	}
}

// RateKey identifies a lane rate. ContainerType is set only for FCL.
type RateKey struct {
	Mode          Mode
	Service       ServiceType
	Origin        string
	Destination   string
	ContainerType ContainerType
}

func (k RateKey) String() string {
	s := fmt.Sprintf("%s/%s %s->%s", k.Mode, k.Service, k.Origin, k.Destination)
	if k.ContainerType != "" {
		s += " " + string(k.ContainerType)
	}

	return s
}

// RateEntry is a published price for a lane.
type RateEntry struct {
	ID string
	RateKey

	Basis         RateBasis
	Price         decimal.Decimal
	MinimumCharge decimal.Decimal
	Currency      string

	// EffectiveFrom and EffectiveTo bound the publication window. A zero
	// value leaves that end open.
	EffectiveFrom time.Time
	EffectiveTo   time.Time

	Version int
}

// Validate checks that the entry describes a priceable lane. FCL rates need
// a container type and the PER_CONTAINER basis; other rates take neither.
func (r RateEntry) Validate() error {
	if _, ok := validServices[r.Mode]; !ok {
		return NewValidationErrorWithValue("mode", "must be SEA or AIR", r.Mode)
	}

	if !r.Mode.SupportsService(r.Service) {
		return NewValidationErrorWithValue("service", fmt.Sprintf("is not offered for mode %s", r.Mode), r.Service)
	}

	if !IsPortCode(r.Origin) {
		return NewValidationErrorWithValue("origin", "must be a UN/LOCODE", r.Origin)
	}

	if !IsPortCode(r.Destination) {
		return NewValidationErrorWithValue("destination", "must be a UN/LOCODE", r.Destination)
	}

	if !r.Basis.Valid() {
		return NewValidationErrorWithValue("basis", "unknown rate basis", r.Basis)
	}

	if r.Service == ServiceFCL {
		if !r.ContainerType.Valid() {
			return NewValidationErrorWithValue("container_type", "unknown container type", r.ContainerType)
		}

		if r.Basis != BasisPerContainer {
			return NewValidationErrorWithValue("basis", "FCL rates are priced PER_CONTAINER", r.Basis)
		}

		return nil
	}

	if r.ContainerType != "" {
		return NewValidationErrorWithValue("container_type", "only applies to FCL", r.ContainerType)
	}

	if r.Basis == BasisPerContainer {
		return NewValidationErrorWithValue("basis", "PER_CONTAINER needs an FCL rate", r.Basis)
	}

	return nil
}

// EffectiveAt reports whether the rate is published at t.
func (r RateEntry) EffectiveAt(t time.Time) bool {
	if !r.EffectiveFrom.IsZero() && t.Before(r.EffectiveFrom) {
		return false
	}

	if !r.EffectiveTo.IsZero() && !t.Before(r.EffectiveTo) {
		return false
	}

	return true
}

// Quantity returns the chargeable quantity for this rate's basis, zero for
// an unknown basis. containers is the number of containers of the rate's type and only
// matters for BasisPerContainer.
func (r RateEntry) Quantity(shipment Shipment, containers int) decimal.Decimal {
	switch r.Basis {
	case BasisPerContainer:
		return decimal.NewFromInt(int64(containers))
	case BasisPerKg:
		return shipment.WeightKg
	case BasisPerCBM:
		return shipment.VolumeM3
	case BasisWeightOrMeasure:
		return decimal.Max(shipment.WeightKg.Div(kgPerTonne), shipment.VolumeM3)
	default:
		return decimal.Zero
	}
}

// SelectEffectiveRate picks the highest version among entries effective at t.
func SelectEffectiveRate(entries []RateEntry, t time.Time) (RateEntry, bool) {
	var (
		best  RateEntry
		found bool
	)

	for _, e := range entries {
		if !e.EffectiveAt(t) {
			continue
		}

		if !found || e.Version > best.Version {
			best, found = e, true
		}
	}

	return best, found
}

// AccessorialMethod determines how a surcharge is computed.
type AccessorialMethod string

// Accessorial methods.
const (
	MethodFlat          AccessorialMethod = "FLAT"
	MethodPercentOfBase AccessorialMethod = "PERCENT_OF_BASE"
	MethodPerKg         AccessorialMethod = "PER_KG"
	MethodPerCBM        AccessorialMethod = "PER_CBM"
	MethodPerContainer  AccessorialMethod = "PER_CONTAINER"
)

var hundred = decimal.NewFromInt(100)

// Valid reports whether m is a known accessorial method.
func (m AccessorialMethod) Valid() bool {
	switch m {
	case MethodFlat, MethodPercentOfBase, MethodPerKg, MethodPerCBM, MethodPerContainer:
		return true
	default:
		return false
	}
}

// AccessorialRule prices one surcharge code. Value is interpreted per
// Method; for PERCENT_OF_BASE a Value of 10 means ten percent.
type AccessorialRule struct {
	Code        string
	Description string
	Method      AccessorialMethod
	Value       decimal.Decimal
}

// Validate checks the rule has a code and a known method.
func (a AccessorialRule) Validate() error {
	if a.Code == "" {
		return NewValidationError("code", "is required")
	}

	if !a.Method.Valid() {
		return NewValidationErrorWithValue("method", "unknown accessorial method", a.Method)
	}

	return nil
}

// Charge returns the unit price and quantity of the surcharge line for a
// shipment whose base amount is base. Rules with an unknown method charge
// nothing; callers check Method.Valid first.
func (a AccessorialRule) Charge(base decimal.Decimal, shipment Shipment) (unitPrice, quantity decimal.Decimal) {
	one := decimal.NewFromInt(1)

	switch a.Method {
	case MethodPercentOfBase:
		return RoundMoney(base.Mul(a.Value).Div(hundred)), one
	case MethodPerKg:
		return a.Value, shipment.WeightKg
	case MethodPerCBM:
		return a.Value, shipment.VolumeM3
	case MethodPerContainer:
		total := 0
		for _, c := range shipment.Containers {
			if c.Count > 0 {
				total += c.Count
			}
		}

		return a.Value, decimal.NewFromInt(int64(total))
	case MethodFlat:
		return a.Value, one
	default:
		return decimal.Zero, decimal.Zero
	}
}
