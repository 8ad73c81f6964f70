package display

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottoplate/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	gold = lipgloss.Color("#f59e0b")

	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f5f5f4")).
			Bold(true)

	goldStyle = lipgloss.NewStyle().
			Foreground(gold)

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d6d3d1"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#78716c"))

	ingredientStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a8a29e")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Background(lipgloss.Color("#44403c"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0c0a09")).
			Background(gold).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#292524")).
			Padding(0, 1).
			Width(36)

	selectedCardStyle = cardStyle.
				BorderForeground(gold)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#292524")).
			Padding(1, 2).
			Align(lipgloss.Center)
)

// layer is one tier of the assembly animation.
type layer struct {
	label string
	width int
	style lipgloss.Style
}

func layerStyle(fg, bg string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(fg)).
		Background(lipgloss.Color(bg))
}

// layersFor returns the bottom-up layers drawn for a dish.
func layersFor(kind domain.DishKind) []layer {
	if kind == domain.DishRing {
		return []layer{
			{"Nori", 32, layerStyle("#a8a29e", "#292524")},
			{"Rice", 26, layerStyle("#3f3f46", "#f4f4f5")},
			{"✿ Petals ✿", 20, layerStyle("#fff1f2", "#e11d48")},
		}
	}
	return []layer{
		{"Crust", 32, layerStyle("#78350f", "#fde68a")},
		{"Cream", 26, layerStyle("#713f12", "#fef9c3")},
		{"@ Rosette @", 20, layerStyle("#451a03", "#f59e0b")},
	}
}

func assemblyWord(kind domain.DishKind) string {
	if kind == domain.DishRing {
		return "PETALS"
	}
	return "ROSETTE"
}
