package banner

import (
	"burstbench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const ascii = `
 ___              _   ___              _
| _ )_  _ _ _ ___| |_| _ ) ___ _ _  __| |_
| _ \ || | '_(_-<|  _| _ \/ -_) ' \/ _| ' \
|___/\_,_|_| /__/ \__|___/\___|_||_\__|_||_|`

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n" + styles.Subtle.Render("  fixed-count HTTP load testing") + "\n"
}
