package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	UserKey      ContextKey = "user"
	RequestIDKey ContextKey = "request_id"
)

// DBRef points at a document in another collection.
type DBRef struct {
	Ref string             `bson:"$ref" json:"$ref"`
	ID  primitive.ObjectID `bson:"$id" json:"$id"`
	DB  string             `bson:"$db,omitempty" json:"$db,omitempty"`
}

func UserRef(id primitive.ObjectID, db string) *DBRef {
	return &DBRef{Ref: "users", ID: id, DB: db}
}

// GeoLocation is a GeoJSON point, [longitude, latitude].
type GeoLocation struct {
	Type        string    `bson:"type" json:"type" validate:"eq=Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"len=2,dive,gte=-180,lte=180"`
}

func NewPoint(longitude, latitude float64) *GeoLocation {
	return &GeoLocation{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

// AppLog is an application log line persisted by the logger.
type AppLog struct {
	Level        string    `bson:"level" json:"level"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	Message      string    `bson:"message" json:"message"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	IpAddress    string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	RequestID    string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	AppId        string    `bson:"app_id" json:"app_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
