package sync

import "github.com/shopspring/decimal"

// Conversion factors between the canonical SI units (grams, centimeters) and
// the imperial units the fulfillment API expects (ounces, inches).
var (
	ouncesPerGram = decimal.NewFromFloat(0.03527396195)
	inchesPerCM   = decimal.NewFromFloat(0.3937007874)
	gramsPerOunce = decimal.NewFromFloat(28.349523125)
	cmPerInch     = decimal.NewFromFloat(2.54)
)

// payloadPrecision is the number of decimal places carried by outbound
// payloads. Rounding here keeps fingerprints stable across repeated runs.
const payloadPrecision = 2

// GramsToOunces converts a canonical weight to the destination unit.
func GramsToOunces(grams decimal.Decimal) decimal.Decimal {
	return grams.Mul(ouncesPerGram).Round(payloadPrecision)
}

// CentimetersToInches converts a canonical dimension to the destination unit.
func CentimetersToInches(cm decimal.Decimal) decimal.Decimal {
	return cm.Mul(inchesPerCM).Round(payloadPrecision)
}

// OuncesToGrams converts a destination weight back to canonical units.
func OuncesToGrams(oz decimal.Decimal) decimal.Decimal {
	return oz.Mul(gramsPerOunce)
}

// InchesToCentimeters converts a destination dimension back to canonical units.
func InchesToCentimeters(in decimal.Decimal) decimal.Decimal {
	return in.Mul(cmPerInch)
}

// convertOptional applies convert to m when present, absent stays absent.
func convertOptional(m *decimal.Decimal, convert func(decimal.Decimal) decimal.Decimal) *decimal.Decimal {
	if m == nil {
		return nil
	}
	v := convert(*m)
	return &v
}
