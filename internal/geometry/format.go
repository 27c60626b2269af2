package geometry

import "fmt"

// FormatKilometers renders a distance in meters as the tooltip label, e.g. "12.3 km".
func FormatKilometers(m float64) string {
	return fmt.Sprintf("%.1f km", m*0.001)
}
