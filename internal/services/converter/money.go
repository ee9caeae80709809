package converter

const centsMulti = 100

// FormatEuro converts cents to the euro value exposed by the API.
func FormatEuro(cents int) float64 {
	return float64(cents) / centsMulti
}

// ConvertEuro converts an API euro value to the cents stored internally.
func ConvertEuro(euro float64) int {
	return int(euro * centsMulti)
}
