package sensor

import (
	"fmt"
	"strings"

	"github.com/travigo/onebusaway/pkg/ctdf"
)

const noSituationsMarkdown = "No active situations"

func RenderSituationsMarkdown(serviceAlerts []*ctdf.ServiceAlert) string {
	if len(serviceAlerts) == 0 {
		return noSituationsMarkdown
	}

	sections := make([]string, 0, len(serviceAlerts))
	for _, serviceAlert := range serviceAlerts {
		var section strings.Builder

		fmt.Fprintf(&section, "### %s\n", serviceAlert.Title)
		if serviceAlert.Text != "" {
			fmt.Fprintf(&section, "\n%s\n", serviceAlert.Text)
		}
		if serviceAlert.URL != "" {
			fmt.Fprintf(&section, "\n[More information](%s)\n", serviceAlert.URL)
		}

		sections = append(sections, section.String())
	}

	return strings.Join(sections, "\n---\n\n")
}
