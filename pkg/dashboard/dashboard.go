// Package dashboard generates Home Assistant Lovelace cards for the sensors of a stop
package dashboard

import (
	"bytes"
	"fmt"

	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/sensor"
	"gopkg.in/yaml.v3"
)

type Card struct {
	Type     string `yaml:"type"`
	Title    string `yaml:"title,omitempty"`
	Content  string `yaml:"content,omitempty"`
	Entities []Row  `yaml:"entities,omitempty"`
	Cards    []Card `yaml:"cards,omitempty"`
}

type Row struct {
	Type      string `yaml:"type,omitempty"`
	Entity    string `yaml:"entity,omitempty"`
	Attribute string `yaml:"attribute,omitempty"`
	Name      string `yaml:"name,omitempty"`
	Icon      string `yaml:"icon,omitempty"`
	Format    string `yaml:"format,omitempty"`
}

// SituationsTemplate is the markdown card template showing the situations of a stop
func SituationsTemplate(stopID string) string {
	return fmt.Sprintf("{{ state_attr('%s', 'markdown_content') }}", sensor.EntityID(stopID, "situations"))
}

// StopCard lists the arrival sensors of a stop, its situations and when it next refreshes
func StopCard(stopConfig *ctdf.StopConfig, arrivals int) Card {
	title := stopConfig.Title
	if title == "" {
		title = stopConfig.StopID
	}

	rows := []Row{}
	for i := 0; i < arrivals; i++ {
		entityID := sensor.EntityID(stopConfig.StopID, fmt.Sprintf("arrival_%d", i))

		rows = append(rows,
			Row{Entity: entityID, Format: "relative"},
			Row{Type: "attribute", Entity: entityID, Attribute: "route_name", Name: "Route", Icon: "mdi:bus"},
		)
	}
	rows = append(rows, Row{
		Entity: sensor.EntityID(stopConfig.StopID, "next_refresh"),
		Name:   "Next refresh",
		Format: "relative",
	})

	return Card{
		Type: "vertical-stack",
		Cards: []Card{
			{
				Type:     "entities",
				Title:    fmt.Sprintf("OneBusAway %s", title),
				Entities: rows,
			},
			{
				Type:    "markdown",
				Title:   "Situations",
				Content: SituationsTemplate(stopConfig.StopID),
			},
		},
	}
}

func Render(card Card) ([]byte, error) {
	var buffer bytes.Buffer

	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)

	if err := encoder.Encode(card); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}
