package weather

import (
	"context"
	"time"

	"tafe-weather-api/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
)

// DefaultRecentMonths is the window length when none is requested.
const DefaultRecentMonths = 3

// LatestFinder looks up the newest createdAt among readings matching filter.
// It returns nil when nothing matches.
type LatestFinder interface {
	FindLatestTimestamp(ctx context.Context, filter bson.M) (*time.Time, error)
}

// Scope narrows a query to one location, one device or, when empty, all
// readings.
type Scope struct {
	DeviceName string
	Location   *models.GeoLocation
}

func (s Scope) IsEmpty() bool {
	return s.DeviceName == "" && s.Location == nil
}

// Filter returns the predicate selecting the scope's readings. A location
// takes precedence over a device.
func (s Scope) Filter() bson.M {
	switch {
	case s.Location != nil:
		return bson.M{"geoLocation": bson.M{"$geoIntersects": bson.M{
			"$geometry": bson.M{"type": s.Location.Type, "coordinates": s.Location.Coordinates},
		}}}
	case s.DeviceName != "":
		return bson.M{"deviceName": s.DeviceName}
	}
	return bson.M{}
}

// DateRange is an inclusive createdAt window. A zero bound is unset.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Predicate returns the createdAt condition for the set bounds.
func (r DateRange) Predicate() bson.M {
	cond := bson.M{}
	if !r.Start.IsZero() {
		cond["$gte"] = r.Start
	}
	if !r.End.IsZero() {
		cond["$lte"] = r.End
	}
	return cond
}

// ScopeResolver picks the createdAt window of a statistics query.
type ScopeResolver struct {
	finder LatestFinder
	now    func() time.Time
}

func NewScopeResolver(finder LatestFinder) *ScopeResolver {
	return &ScopeResolver{finder: finder, now: time.Now}
}

// ResolveWindow returns explicit unchanged when both bounds are set.
// Otherwise the window ends at the newest reading of the scope and starts
// recentMonths earlier. A scope without readings is anchored to now.
func (r *ScopeResolver) ResolveWindow(ctx context.Context, scope Scope, explicit DateRange, recentMonths int) (DateRange, error) {
	if !explicit.Start.IsZero() && !explicit.End.IsZero() {
		return explicit, nil
	}
	if recentMonths <= 0 {
		recentMonths = DefaultRecentMonths
	}

	window := explicit
	if window.End.IsZero() {
		latest, err := r.finder.FindLatestTimestamp(ctx, scope.Filter())
		if err != nil {
			return DateRange{}, err
		}
		if latest != nil {
			window.End = latest.UTC()
		} else {
			window.End = r.now().UTC()
		}
	}
	if window.Start.IsZero() {
		window.Start = window.End.AddDate(0, -recentMonths, 0)
	}
	return window, nil
}
