package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/foxsim/internal/metrics"
)

func row(label, value string) string {
	return MetricLabel.Render(fmt.Sprintf("%-22s", label)) + MetricValue.Render(value)
}

// RenderSummary formats the final ensemble statistics.
func RenderSummary(title string, s metrics.Snapshot, elapsed time.Duration) string {
	var b strings.Builder

	b.WriteString(row("runs", fmt.Sprintf("%d", s.Runs)) + "\n")
	b.WriteString(row("everything died", fmt.Sprintf("%d (%.1f%%)", s.Extinct, 100*s.ExtinctFraction())) + "\n")
	b.WriteString(row("foxes died", fmt.Sprintf("%d (%.1f%%)", s.FoxesExtinct, 100*s.FoxesExtinctFraction())) + "\n")

	if s.Peaks == 0 {
		b.WriteString(StatusWarning.Render("no second peak found") + "\n")
	} else {
		b.WriteString(row("runs with second peak", fmt.Sprintf("%d", s.Peaks)) + "\n")
		b.WriteString(row("second peak (days)", fmt.Sprintf("%.1f  IQR [%.1f-%.1f]", s.MeanTime, s.TimeQ1, s.TimeQ3)) + "\n")
		b.WriteString(row("second peak (foxes)", fmt.Sprintf("%.1f  IQR [%.1f-%.1f]", s.MeanFoxes, s.FoxesQ1, s.FoxesQ3)) + "\n")
	}
	if elapsed > 0 {
		b.WriteString(row("elapsed", elapsed.Round(time.Millisecond).String()))
	}

	return BoxWithTitle(title, strings.TrimRight(b.String(), "\n"), 60)
}
