package weather

import (
	"slices"
	"time"

	"tafe-weather-api/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	Collection    = "weathers"
	LogCollection = "logs"
)

// NumericFields are the measurements that can be aggregated.
var NumericFields = []string{
	"precipitation",
	"temperature",
	"atmosphericPressure",
	"maxWindSpeed",
	"solarRadiation",
	"vaporPressure",
	"humidity",
	"windDirection",
}

func IsNumericField(name string) bool {
	return slices.Contains(NumericFields, name)
}

// Weather is one sensor reading.
type Weather struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	DeviceName          string              `bson:"deviceName" json:"deviceName"`
	Precipitation       float64             `bson:"precipitation" json:"precipitation"`
	Temperature         float64             `bson:"temperature" json:"temperature"`
	AtmosphericPressure float64             `bson:"atmosphericPressure" json:"atmosphericPressure"`
	MaxWindSpeed        float64             `bson:"maxWindSpeed" json:"maxWindSpeed"`
	SolarRadiation      float64             `bson:"solarRadiation" json:"solarRadiation"`
	VaporPressure       float64             `bson:"vaporPressure" json:"vaporPressure"`
	Humidity            float64             `bson:"humidity" json:"humidity"`
	WindDirection       float64             `bson:"windDirection" json:"windDirection"`
	CreatedAt           time.Time           `bson:"createdAt" json:"createdAt"`
	CreatedBy           *models.DBRef       `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	LastModifiedAt      *time.Time          `bson:"lastModifiedAt,omitempty" json:"lastModifiedAt,omitempty"`
	LastModifiedBy      *models.DBRef       `bson:"lastModifiedBy,omitempty" json:"lastModifiedBy,omitempty"`
	GeoLocation         *models.GeoLocation `bson:"geoLocation,omitempty" json:"geoLocation,omitempty"`
}

// Measure returns the value of a numeric field by name.
func (w *Weather) Measure(field string) (float64, bool) {
	switch field {
	case "precipitation":
		return w.Precipitation, true
	case "temperature":
		return w.Temperature, true
	case "atmosphericPressure":
		return w.AtmosphericPressure, true
	case "maxWindSpeed":
		return w.MaxWindSpeed, true
	case "solarRadiation":
		return w.SolarRadiation, true
	case "vaporPressure":
		return w.VaporPressure, true
	case "humidity":
		return w.Humidity, true
	case "windDirection":
		return w.WindDirection, true
	}
	return 0, false
}

// DeletedWeather is a reading moved to the logs collection.
type DeletedWeather struct {
	Weather   `bson:",inline"`
	DeletedAt time.Time     `bson:"deletedAt" json:"deletedAt"`
	DeletedBy *models.DBRef `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
}

// Input is the request body for creating or replacing a reading.
type Input struct {
	DeviceName          string              `json:"deviceName" validate:"required,min=1,max=50"`
	Precipitation       *float64            `json:"precipitation" validate:"required,gte=0"`
	Temperature         *float64            `json:"temperature" validate:"required,gte=-90,lte=70"`
	AtmosphericPressure *float64            `json:"atmosphericPressure" validate:"required,gte=0"`
	MaxWindSpeed        *float64            `json:"maxWindSpeed" validate:"required,gte=0"`
	SolarRadiation      *float64            `json:"solarRadiation" validate:"required,gte=0"`
	VaporPressure       *float64            `json:"vaporPressure" validate:"required,gte=0"`
	Humidity            *float64            `json:"humidity" validate:"required,gte=0,lte=100"`
	WindDirection       *float64            `json:"windDirection" validate:"required,gte=0,lte=360"`
	CreatedAt           *time.Time          `json:"createdAt"`
	GeoLocation         *models.GeoLocation `json:"geoLocation" validate:"omitempty"`
}

// ToWeather converts a validated input into a reading created by author.
func (in *Input) ToWeather(author *models.DBRef, now time.Time) Weather {
	w := Weather{
		DeviceName:          in.DeviceName,
		Precipitation:       deref(in.Precipitation),
		Temperature:         deref(in.Temperature),
		AtmosphericPressure: deref(in.AtmosphericPressure),
		MaxWindSpeed:        deref(in.MaxWindSpeed),
		SolarRadiation:      deref(in.SolarRadiation),
		VaporPressure:       deref(in.VaporPressure),
		Humidity:            deref(in.Humidity),
		WindDirection:       deref(in.WindDirection),
		CreatedAt:           now.UTC(),
		CreatedBy:           author,
		GeoLocation:         in.GeoLocation,
	}
	if in.CreatedAt != nil {
		w.CreatedAt = in.CreatedAt.UTC()
	}
	return w
}

// Update is a partial update body; absent fields are left unchanged.
type Update struct {
	DeviceName          *string             `json:"deviceName" validate:"omitempty,min=1,max=50"`
	Precipitation       *float64            `json:"precipitation" validate:"omitempty,gte=0"`
	Temperature         *float64            `json:"temperature" validate:"omitempty,gte=-90,lte=70"`
	AtmosphericPressure *float64            `json:"atmosphericPressure" validate:"omitempty,gte=0"`
	MaxWindSpeed        *float64            `json:"maxWindSpeed" validate:"omitempty,gte=0"`
	SolarRadiation      *float64            `json:"solarRadiation" validate:"omitempty,gte=0"`
	VaporPressure       *float64            `json:"vaporPressure" validate:"omitempty,gte=0"`
	Humidity            *float64            `json:"humidity" validate:"omitempty,gte=0,lte=100"`
	WindDirection       *float64            `json:"windDirection" validate:"omitempty,gte=0,lte=360"`
	GeoLocation         *models.GeoLocation `json:"geoLocation" validate:"omitempty"`
}

// Fields returns the $set document for the fields present in u.
func (u *Update) Fields() map[string]any {
	set := map[string]any{}
	if u.DeviceName != nil {
		set["deviceName"] = *u.DeviceName
	}
	floats := map[string]*float64{
		"precipitation":       u.Precipitation,
		"temperature":         u.Temperature,
		"atmosphericPressure": u.AtmosphericPressure,
		"maxWindSpeed":        u.MaxWindSpeed,
		"solarRadiation":      u.SolarRadiation,
		"vaporPressure":       u.VaporPressure,
		"humidity":            u.Humidity,
		"windDirection":       u.WindDirection,
	}
	for k, v := range floats {
		if v != nil {
			set[k] = *v
		}
	}
	if u.GeoLocation != nil {
		set["geoLocation"] = u.GeoLocation
	}
	return set
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
