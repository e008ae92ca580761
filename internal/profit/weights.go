package profit

import "math"

// poundsPerKg converts the carrier's pound weights to kilograms.
const poundsPerKg = 2.20462

// weightBracket is one row of the carrier handling-fee table: a closed
// [From, To] kilogram range mapping to a flat fee in USD.
type weightBracket struct {
	From float64
	To   float64
	Fee  float64
}

// weightTable is the fixed 40-bracket carrier fee schedule. Weights above the
// top bracket clamp to the top fee; they are never extrapolated.
var weightTable = []weightBracket{
	{0.01, 0.50, 24.01},
	{0.51, 1.00, 33.09},
	{1.01, 1.50, 42.17},
	{1.51, 2.00, 51.25},
	{2.01, 2.50, 61.94},
	{2.51, 3.00, 71.02},
	{3.01, 3.50, 80.91},
	{3.51, 4.00, 89.99},
	{4.01, 4.50, 99.87},
	{4.51, 5.00, 108.95},
	{5.01, 5.50, 117.19},
	{5.51, 6.00, 126.12},
	{6.01, 6.50, 135.85},
	{6.51, 7.00, 144.78},
	{7.01, 7.50, 154.52},
	{7.51, 8.00, 163.75},
	{8.01, 8.50, 173.18},
	{8.51, 9.00, 182.11},
	{9.01, 9.50, 191.85},
	{9.51, 10.00, 200.78},
	{10.01, 10.50, 207.36},
	{10.51, 11.00, 216.14},
	{11.01, 11.50, 225.73},
	{11.51, 12.00, 234.51},
	{12.01, 12.50, 244.09},
	{12.51, 13.00, 252.87},
	{13.01, 13.50, 262.46},
	{13.51, 14.00, 271.24},
	{14.01, 14.50, 280.82},
	{14.51, 15.00, 289.60},
	{15.01, 15.50, 294.54},
	{15.51, 16.00, 303.17},
	{16.01, 16.50, 312.60},
	{16.51, 17.00, 321.23},
	{17.01, 17.50, 330.67},
	{17.51, 18.00, 339.30},
	{18.01, 18.50, 348.73},
	{18.51, 19.00, 357.36},
	{19.01, 19.50, 366.80},
	{19.51, 20.00, 373.72},
}

// RoundHalfKg rounds a kilogram weight up to the next 0.5 kg increment.
func RoundHalfKg(kg float64) float64 {
	return math.Ceil(kg*2) / 2
}

// PoundsToKg converts pounds to kilograms.
func PoundsToKg(lbs float64) float64 {
	return lbs / poundsPerKg
}

// HandlingFee returns the flat carrier handling fee for a rounded kilogram
// weight. Non-positive weights carry no fee; weights above the table clamp to
// the top bracket.
func HandlingFee(kg float64) float64 {
	if kg <= 0 {
		return 0
	}
	for _, b := range weightTable {
		if kg >= b.From && kg <= b.To {
			return b.Fee
		}
	}
	top := weightTable[len(weightTable)-1]
	if kg > top.To {
		return top.Fee
	}
	return 0
}
