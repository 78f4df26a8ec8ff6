package engine

import (
	"fmt"
	"strings"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// composeAlertMessage builds the human-readable alert text: the reason(s)
// that fired, the raw values, and the model probability when a model was
// consulted.
func composeAlertMessage(r domain.Reading, byThreshold, byModel, modelConsulted bool, prob float64) string {
	var reasons []string
	if byThreshold {
		reasons = append(reasons, "thresholds exceeded")
	}
	if byModel {
		reasons = append(reasons, "model prediction")
	}

	var b strings.Builder
	b.WriteString("RISK ALERT\n")
	fmt.Fprintf(&b, "Reason: %s\n", strings.Join(reasons, " and "))
	fmt.Fprintf(&b, "Temperature: %.1f°C\n", r.Temperature)
	fmt.Fprintf(&b, "Humidity: %.0f%%\n", r.Humidity)
	fmt.Fprintf(&b, "Rain: %.1f mm", r.RainMM)
	if modelConsulted {
		fmt.Fprintf(&b, "\nModel risk probability: %.1f%%", prob*100)
	}
	return b.String()
}
