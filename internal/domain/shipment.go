package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode is the transport mode of a shipment.
type Mode string

// Transport modes.
const (
	ModeSea Mode = "SEA"
	ModeAir Mode = "AIR"
)

// ServiceType is the service level within a mode.
type ServiceType string

// Service types.
const (
	ServiceFCL ServiceType = "FCL"
	ServiceLCL ServiceType = "LCL"
	ServiceAir ServiceType = "AIR"
)

// ContainerType is an ISO container size/type code.
type ContainerType string

// Supported container types.
const (
	Container20GP ContainerType = "20GP"
	Container40GP ContainerType = "40GP"
	Container40HC ContainerType = "40HC"
	Container45HC ContainerType = "45HC"
	Container20RF ContainerType = "20RF"
	Container40RF ContainerType = "40RF"
)

var validServices = map[Mode][]ServiceType{
	ModeSea: {ServiceFCL, ServiceLCL},
	ModeAir: {ServiceAir},
}

var knownContainers = map[ContainerType]bool{
	Container20GP: true,
	Container40GP: true,
	Container40HC: true,
	Container45HC: true,
	Container20RF: true,
	Container40RF: true,
}

var (
	portCodePattern = regexp.MustCompile(`^[A-Z]{2}[A-Z2-9]{3}$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// SupportsService reports whether the service type is offered in this mode.
func (m Mode) SupportsService(s ServiceType) bool {
	for _, candidate := range validServices[m] {
		if candidate == s {
			return true
		}
	}

	return false
}

// Valid reports whether the container type is known.
func (c ContainerType) Valid() bool {
	return knownContainers[c]
}

// IsPortCode reports whether code looks like a UN/LOCODE.
func IsPortCode(code string) bool {
	return portCodePattern.MatchString(code)
}

// IsCurrencyCode reports whether code looks like an ISO 4217 code.
func IsCurrencyCode(code string) bool {
	return currencyPattern.MatchString(code)
}

// ContainerSpec requests Count containers of one type.
type ContainerSpec struct {
	Type  ContainerType
	Count int
}

// QuoteRequest is a customer's request for a price. It is treated as
// immutable once submitted.
type QuoteRequest struct {
	CustomerID  string
	Mode        Mode
	Service     ServiceType
	Origin      string
	Destination string

	// Containers is required for FCL and rejected otherwise.
	Containers []ContainerSpec

	// WeightKg and VolumeM3 drive LCL and AIR pricing and per-kg/per-cbm surcharges.
	WeightKg decimal.Decimal
	VolumeM3 decimal.Decimal

	// Accessorials are surcharge codes in the order they were requested.
	Accessorials []string

	// SettlementCurrency optionally asks for conversion from the rate currency.
	SettlementCurrency string
}

// Normalize returns a copy with codes upper-cased and trimmed.
func (r QuoteRequest) Normalize() QuoteRequest {
	out := r
	out.CustomerID = strings.TrimSpace(r.CustomerID)
	out.Mode = Mode(normalizeCode(string(r.Mode)))
	out.Service = ServiceType(normalizeCode(string(r.Service)))
	out.Origin = normalizeCode(r.Origin)
	out.Destination = normalizeCode(r.Destination)
	out.SettlementCurrency = normalizeCode(r.SettlementCurrency)

	out.Containers = make([]ContainerSpec, len(r.Containers))
	for i, c := range r.Containers {
		out.Containers[i] = ContainerSpec{Type: ContainerType(normalizeCode(string(c.Type))), Count: c.Count}
	}

	out.Accessorials = make([]string, len(r.Accessorials))
	for i, code := range r.Accessorials {
		out.Accessorials[i] = normalizeCode(code)
	}

	return out
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Validate checks the request against the shipment rules and returns the
// first violation as a *ValidationError.
func (r QuoteRequest) Validate() error {
	if r.CustomerID == "" {
		return NewValidationError("customer_id", "is required")
	}

	if _, ok := validServices[r.Mode]; !ok {
		return NewValidationErrorWithValue("mode", "must be SEA or AIR", r.Mode)
	}

	if !r.Mode.SupportsService(r.Service) {
		return NewValidationErrorWithValue("service_type",
			fmt.Sprintf("is not offered for mode %s", r.Mode), r.Service)
	}

	if !IsPortCode(r.Origin) {
		return NewValidationErrorWithValue("origin", "must be a UN/LOCODE", r.Origin)
	}

	if !IsPortCode(r.Destination) {
		return NewValidationErrorWithValue("destination", "must be a UN/LOCODE", r.Destination)
	}

	if r.Origin == r.Destination {
		return NewValidationError("destination", "must differ from origin")
	}

	if r.SettlementCurrency != "" && !IsCurrencyCode(r.SettlementCurrency) {
		return NewValidationErrorWithValue("settlement_currency", "must be an ISO 4217 code", r.SettlementCurrency)
	}

	if err := r.validateCargo(); err != nil {
		return err
	}

	return r.validateAccessorials()
}

func (r QuoteRequest) validateCargo() error {
	if r.WeightKg.IsNegative() {
		return NewValidationErrorWithValue("weight_kg", "must not be negative", r.WeightKg.String())
	}

	if r.VolumeM3.IsNegative() {
		return NewValidationErrorWithValue("volume_m3", "must not be negative", r.VolumeM3.String())
	}

	if r.Service != ServiceFCL {
		if len(r.Containers) > 0 {
			return NewValidationError("containers", "only applies to FCL")
		}

		if r.WeightKg.IsZero() && r.VolumeM3.IsZero() {
			return NewValidationError("weight_kg", "weight or volume is required for "+string(r.Service))
		}

		return nil
	}

	if len(r.Containers) == 0 {
		return NewValidationError("containers", "at least one container is required for FCL")
	}

	for i, c := range r.Containers {
		field := fmt.Sprintf("containers[%d]", i)
		if !c.Type.Valid() {
			return NewValidationErrorWithValue(field+".type", "unknown container type", c.Type)
		}

		if c.Count < 1 {
			return NewValidationErrorWithValue(field+".count", "must be at least 1", c.Count)
		}
	}

	return nil
}

func (r QuoteRequest) validateAccessorials() error {
	seen := make(map[string]bool, len(r.Accessorials))
	for i, code := range r.Accessorials {
		field := fmt.Sprintf("accessorials[%d]", i)
		if code == "" {
			return NewValidationError(field, "must not be empty")
		}

		if seen[code] {
			return NewValidationErrorWithValue(field, "duplicate accessorial code", code)
		}

		seen[code] = true
	}

	return nil
}

// TotalContainers returns the sum of all container counts.
func (r QuoteRequest) TotalContainers() int {
	total := 0
	for _, c := range r.Containers {
		total += c.Count
	}

	return total
}

// Fingerprint returns a stable hash of the request payload. Two requests
// with the same fingerprint price identically against the same reference data.
func (r QuoteRequest) Fingerprint() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|", r.CustomerID, r.Mode, r.Service, r.Origin, r.Destination, r.SettlementCurrency)

	for _, c := range r.Containers {
		fmt.Fprintf(&b, "%s*%d,", c.Type, c.Count)
	}

	fmt.Fprintf(&b, "|%s|%s|%s", r.WeightKg.String(), r.VolumeM3.String(), strings.Join(r.Accessorials, ","))

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

// Shipment returns the cargo snapshot stored on a quote.
func (r QuoteRequest) Shipment() Shipment {
	return Shipment{
		Containers:   append([]ContainerSpec(nil), r.Containers...),
		WeightKg:     r.WeightKg,
		VolumeM3:     r.VolumeM3,
		Accessorials: append([]string(nil), r.Accessorials...),
	}
}

// Shipment is the cargo snapshot a quote was priced for.
type Shipment struct {
	Containers   []ContainerSpec
	WeightKg     decimal.Decimal
	VolumeM3     decimal.Decimal
	Accessorials []string
}
