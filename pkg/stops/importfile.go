package stops

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/configflow"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"gopkg.in/yaml.v3"
)

type ImportFile struct {
	Stops []configflow.UserInput `yaml:"stops"`
}

func ParseImportFile(reader io.Reader) (*ImportFile, error) {
	var importFile ImportFile

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	if err := decoder.Decode(&importFile); err != nil {
		return nil, err
	}

	return &importFile, nil
}

type ImportResult struct {
	Created int
	Updated int
	Failed  int
}

// Import creates every stop in the file, updating the ones that already exist
func Import(ctx context.Context, flow *configflow.Flow, importFile *ImportFile) ImportResult {
	var result ImportResult

	for _, input := range importFile.Stops {
		if input.ID == "" {
			input.ID = configflow.DefaultStopID
		}

		_, err := flow.Create(ctx, input)
		if configflow.BaseError(err) == configflow.ErrorAlreadyConfigured {
			_, err = flow.Update(ctx, ctdf.StopConfigIdentifier(input.ID), input)
			if err == nil {
				result.Updated++
				continue
			}
		} else if err == nil {
			result.Created++
			continue
		}

		log.Error().Err(err).Str("stop", input.ID).Msg("Failed to import stop")
		result.Failed++
	}

	return result
}
