package assembler

import (
	"strings"

	"github.com/rezonia/mdfe-builder/internal/decimal"
	"github.com/rezonia/mdfe-builder/internal/model"
)

func buildAir(a model.AirTransport) *model.AirModal {
	return &model.AirModal{
		Nationality:          strings.ToUpper(strings.TrimSpace(a.Nationality)),
		Registration:         strings.ToUpper(strings.TrimSpace(a.Registration)),
		FlightNumber:         strings.ToUpper(strings.TrimSpace(a.FlightNumber)),
		OriginAerodrome:      strings.ToUpper(strings.TrimSpace(a.OriginAerodrome)),
		DestinationAerodrome: strings.ToUpper(strings.TrimSpace(a.DestinationAerodrome)),
		FlightDate:           strings.TrimSpace(a.FlightDate),
	}
}

func buildWater(w model.WaterTransport) *model.WaterModal {
	return &model.WaterModal{
		IRIN:          strings.ToUpper(strings.TrimSpace(w.IRIN)),
		VesselType:    strings.TrimSpace(w.VesselType),
		VesselCode:    strings.TrimSpace(w.VesselCode),
		VesselName:    strings.TrimSpace(w.VesselName),
		VoyageNumber:  strings.TrimSpace(w.VoyageNumber),
		LoadingPort:   strings.ToUpper(strings.TrimSpace(w.LoadingPort)),
		UnloadingPort: strings.ToUpper(strings.TrimSpace(w.UnloadingPort)),
	}
}

// buildRail emits the wagon count as an integer string; an unparseable
// count is left empty
func buildRail(r model.RailTransport) *model.RailModal {
	wagons, err := decimal.IntegerString(r.WagonCount)
	if err != nil {
		wagons = ""
	}
	return &model.RailModal{
		Train: model.Train{
			Prefix:      strings.ToUpper(strings.TrimSpace(r.Prefix)),
			DepartureAt: strings.TrimSpace(r.DepartureAt),
			Origin:      strings.TrimSpace(r.Origin),
			Destination: strings.TrimSpace(r.Destination),
			WagonCount:  wagons,
		},
	}
}
