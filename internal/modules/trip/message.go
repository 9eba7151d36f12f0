// README: Outbound wire messages for trip creation and telemetry.
package trip

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"tripsim/internal/types"
)

const (
	MessageTypeTrip      = "novedad"
	MessageTypeTelemetry = "evento"
	EntityTypeTrip       = "viaje"
	DeviceVendor         = "Integra"
	DeviceType           = "emulated"
)

type TripMessage struct {
	UUID        string      `json:"uuid"`
	MsgDateTime string      `json:"msgDateTime"`
	MessageType string      `json:"messageType"`
	EntityType  string      `json:"entityType"`
	Viaje       TripDetails `json:"viaje"`
}

type TripDetails struct {
	TipoViaje         string   `json:"tipoViaje"`
	IDSucursalOrigen  string   `json:"idSucursalOrigen"`
	IDSucursalDestino string   `json:"idSucursalDestino"`
	HR                string   `json:"hr"`
	Transportista     string   `json:"transportista"`
	Dominio           string   `json:"dominio"`
	DominioSemi       string   `json:"dominioSemi"`
	Precintos         []string `json:"precintos"`
}

type TelemetryMessage struct {
	UUID         string  `json:"uuid"`
	MsgDateTime  string  `json:"msgDateTime"`
	MessageType  string  `json:"messageType"`
	DeviceID     string  `json:"deviceID"`
	DeviceVendor string  `json:"deviceVendor"`
	DeviceType   string  `json:"deviceType"`
	GPS          GPS     `json:"gps"`
	Velocidad    float64 `json:"velocidad"`
	Ubicacion    string  `json:"ubicacion"`
	Clima        string  `json:"clima"`
	Trafico      string  `json:"trafico"`
	Eventos      []int   `json:"eventos"`
}

// GPS coordinates travel as decimal strings.
type GPS struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

func NewTripMessage(id types.ID, domainCode string, at time.Time, req TripRequest) TripMessage {
	seals := make([]string, len(req.Seals))
	for i, s := range req.Seals {
		seals[i] = string(s)
	}
	return TripMessage{
		UUID:        string(id),
		MsgDateTime: formatTime(at),
		MessageType: MessageTypeTrip,
		EntityType:  EntityTypeTrip,
		Viaje: TripDetails{
			TipoViaje:         string(req.TripType),
			IDSucursalOrigen:  string(req.OriginBranch),
			IDSucursalDestino: string(req.DestinationBranch),
			HR:                string(req.ScheduledHour),
			Transportista:     string(req.Carrier),
			Dominio:           domainCode,
			DominioSemi:       string(req.SemiDomainCode),
			Precintos:         seals,
		},
	}
}

func NewTelemetryMessage(domainCode string, ev TelemetryEvent) TelemetryMessage {
	return TelemetryMessage{
		UUID:         ev.ID.String(),
		MsgDateTime:  formatTime(ev.Timestamp),
		MessageType:  MessageTypeTelemetry,
		DeviceID:     domainCode,
		DeviceVendor: DeviceVendor,
		DeviceType:   DeviceType,
		GPS: GPS{
			Lat:  strconv.FormatFloat(ev.Position.Lat, 'f', 6, 64),
			Long: strconv.FormatFloat(ev.Position.Lng, 'f', 6, 64),
		},
		Velocidad: math.Round(ev.SpeedKmh*100) / 100,
		Ubicacion: ev.Location,
		Clima:     string(ev.Weather),
		Trafico:   string(ev.Traffic),
		Eventos:   []int{int(ev.Event)},
	}
}

func (m TripMessage) Encode() ([]byte, error)      { return json.Marshal(m) }
func (m TelemetryMessage) Encode() ([]byte, error) { return json.Marshal(m) }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
