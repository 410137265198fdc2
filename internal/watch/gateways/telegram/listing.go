package telegram

import (
	"strings"

	"github.com/haukened/blockwatch/internal/watch/domain"
)

// RenderListing formats the registry for a chat reply. Blocked domains are
// marked 🚫, the rest ✅.
func RenderListing(s domain.Snapshot) string {
	var b strings.Builder
	b.WriteString("📋 Monitored Domains\n\n")

	if len(s.Main) > 0 {
		b.WriteString("🔹 Main Domains:\n")
		writeLines(&b, s, s.Main)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No main domains added yet.\n\n")
	}

	if len(s.Alternative) > 0 {
		b.WriteString("🔸 Alternative Domains:\n")
		writeLines(&b, s, s.Alternative)
	} else {
		b.WriteString("No alternative domains added yet.")
	}
	return b.String()
}

func writeLines(b *strings.Builder, s domain.Snapshot, list []domain.Domain) {
	for i, d := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := "✅"
		if s.IsBlocked(d) {
			mark = "🚫"
		}
		b.WriteString("- " + d.String() + " " + mark)
	}
}
