package reconcile

import (
	"fmt"
	"html"
	"strings"

	"avaris/internal/model"
)

// BuildReport 生成可读的对账摘要
// 未匹配姓名逐条列出，供操作员人工处理
func BuildReport(outcome *model.ReconciliationOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Kontrola jmen: celkem %d, přesná shoda %d, opravitelná shoda %d, bez shody %d\n",
		outcome.Total, outcome.Exact, outcome.Fuzzy, outcome.Unmatched)
	if outcome.Applied > 0 {
		fmt.Fprintf(&b, "Automaticky opraveno: %d\n", outcome.Applied)
	}

	if outcome.Unmatched > 0 {
		b.WriteString("Bez shody (vyžaduje ruční kontrolu):\n")
		for _, m := range outcome.Matches {
			if m.Kind != model.MatchNone {
				continue
			}
			fmt.Fprintf(&b, "  - řádek %d: %s\n", m.Row, m.Source)
		}
	}

	return b.String()
}

// BuildReportHTML 生成 HTML 片段版的对账摘要
func BuildReportHTML(outcome *model.ReconciliationOutcome) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<p>Kontrola jmen: celkem <b>%d</b>, přesná shoda <b>%d</b>, opravitelná shoda <b>%d</b>, bez shody <b>%d</b></p>",
		outcome.Total, outcome.Exact, outcome.Fuzzy, outcome.Unmatched)
	if outcome.Applied > 0 {
		fmt.Fprintf(&b, "<p>Automaticky opraveno: <b>%d</b></p>", outcome.Applied)
	}

	if outcome.Unmatched > 0 {
		b.WriteString("<p>Bez shody (vyžaduje ruční kontrolu):</p><ul>")
		for _, m := range outcome.Matches {
			if m.Kind != model.MatchNone {
				continue
			}
			fmt.Fprintf(&b, "<li>řádek %d: %s</li>", m.Row, html.EscapeString(m.Source))
		}
		b.WriteString("</ul>")
	}

	return b.String()
}
