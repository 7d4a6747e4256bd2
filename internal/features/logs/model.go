package logs

import (
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/features/weather"
)

// Collection holds readings removed from weathers.
const Collection = weather.LogCollection

// Log is a soft-deleted reading with the account that deleted it resolved.
type Log struct {
	weather.DeletedWeather `bson:",inline"`
	DeletedByUser          *models.User `bson:"deletedByUser,omitempty" json:"deletedByUser,omitempty"`
}
