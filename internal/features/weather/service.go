package weather

import (
	"context"
	"io"
	"time"

	common_api "tafe-weather-api/internal/common/api"
	"tafe-weather-api/internal/common/apperror"
	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/internal/config"
	"tafe-weather-api/internal/metrics"
	"tafe-weather-api/pkg/pipeline"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ExportLimit caps the rows of one export.
const ExportLimit = 100000

// GroupableFields are the fields statistics can be split by.
var GroupableFields = []string{"deviceName"}

// StatsQuery describes a statistics request over one numeric field.
type StatsQuery struct {
	Field        string
	GroupBy      string
	Scope        Scope
	Range        DateRange
	RecentMonths int
	Filter       bson.M
}

// ExtremesQuery asks for every reading tied at the max or min of Field.
type ExtremesQuery struct {
	StatsQuery
	Operation string
	Limit     int64
}

type StatsResult struct {
	Field   string                 `json:"aggField"`
	GroupBy string                 `json:"groupBy,omitempty"`
	Window  DateRange              `json:"window"`
	Result  []pipeline.StatSummary `json:"result"`
}

type ExtremesResult struct {
	Field     string    `json:"aggField"`
	Operation string    `json:"operation"`
	Window    DateRange `json:"window"`
	Result    []bson.M  `json:"result"`
}

type ImportResult struct {
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Publisher receives readings as they are stored.
type Publisher interface {
	Publish(readings []Weather)
}

type WeatherService interface {
	List(ctx context.Context, q common_api.ListQuery) (*pipeline.PageResult[Weather], error)
	Get(ctx context.Context, id primitive.ObjectID) (*Weather, error)
	Create(ctx context.Context, inputs []Input, author *models.User) ([]Weather, error)
	Update(ctx context.Context, id primitive.ObjectID, upd Update, author *models.User) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, id primitive.ObjectID, author *models.User) error
	DeleteMany(ctx context.Context, filter bson.M, author *models.User) (int64, error)
	BuildStatsPipeline(ctx context.Context, q StatsQuery) (mongo.Pipeline, pipeline.StatGroup, DateRange, error)
	Stats(ctx context.Context, q StatsQuery) (*StatsResult, error)
	BuildExtremesPipeline(ctx context.Context, q ExtremesQuery) (mongo.Pipeline, DateRange, error)
	Extremes(ctx context.Context, q ExtremesQuery) (*ExtremesResult, error)
	Import(ctx context.Context, r io.Reader, format Format, author *models.User) (*ImportResult, error)
	Export(ctx context.Context, q common_api.ListQuery, format Format, w io.Writer) error
	Devices(ctx context.Context) ([]string, error)
}

type WeatherServiceImpl struct {
	Repo      WeatherRepository
	Resolver  *ScopeResolver
	Publisher Publisher
	Logger    *zap.Logger
	dbName    string
	now       func() time.Time
}

func NewWeatherService(repo WeatherRepository, publisher Publisher, cfg *config.Config, logger *zap.Logger) WeatherService {
	return &WeatherServiceImpl{
		Repo:      repo,
		Resolver:  NewScopeResolver(repo),
		Publisher: publisher,
		Logger:    logger,
		dbName:    cfg.DBName,
		now:       time.Now,
	}
}

func (s *WeatherServiceImpl) List(ctx context.Context, q common_api.ListQuery) (*pipeline.PageResult[Weather], error) {
	b := pipeline.NewBuilder().Match(q.Filter).Sort(q.Sort)
	return pipeline.RunPaginated[Weather](ctx, s.Repo, Collection, b, q.Limit, q.Page)
}

func (s *WeatherServiceImpl) Get(ctx context.Context, id primitive.ObjectID) (*Weather, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *WeatherServiceImpl) Create(ctx context.Context, inputs []Input, author *models.User) ([]Weather, error) {
	if len(inputs) == 0 {
		return nil, apperror.BadRequest("At least one reading is required")
	}

	ref := s.authorRef(author)
	now := s.now()
	readings := make([]Weather, len(inputs))
	for i := range inputs {
		readings[i] = inputs[i].ToWeather(ref, now)
	}

	if len(readings) == 1 {
		if err := s.Repo.InsertOne(ctx, &readings[0]); err != nil {
			return nil, err
		}
	} else {
		n, err := s.Repo.InsertMany(ctx, readings)
		if err != nil {
			s.Logger.Warn("partial weather insert", zap.Int("inserted", n), zap.Int("requested", len(readings)), zap.Error(err))
			return nil, err
		}
	}

	metrics.WeathersImported.WithLabelValues("api").Add(float64(len(readings)))
	s.publish(readings)
	return readings, nil
}

func (s *WeatherServiceImpl) Update(ctx context.Context, id primitive.ObjectID, upd Update, author *models.User) (*mongo.UpdateResult, error) {
	set := bson.M(upd.Fields())
	if len(set) == 0 {
		return nil, apperror.BadRequest("Nothing to update")
	}
	set["lastModifiedAt"] = s.now().UTC()
	if ref := s.authorRef(author); ref != nil {
		set["lastModifiedBy"] = ref
	}

	res, err := s.Repo.Update(ctx, id, set)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, apperror.NotFound("Weather reading not found")
	}
	return res, nil
}

func (s *WeatherServiceImpl) Delete(ctx context.Context, id primitive.ObjectID, author *models.User) error {
	n, err := s.Repo.SoftDelete(ctx, bson.M{"_id": id}, s.authorRef(author))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("Weather reading not found")
	}
	return nil
}

// DeleteMany soft-deletes every reading matching filter. An empty filter is
// refused so a bare DELETE cannot wipe the collection.
func (s *WeatherServiceImpl) DeleteMany(ctx context.Context, filter bson.M, author *models.User) (int64, error) {
	if len(filter) == 0 {
		return 0, apperror.BadRequest("A filter is required to delete readings")
	}
	n, err := s.Repo.SoftDelete(ctx, filter, s.authorRef(author))
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, apperror.NotFound("No weather readings matched")
	}
	return n, nil
}

// window validates the field and resolves the createdAt window of q.
func (s *WeatherServiceImpl) window(ctx context.Context, q StatsQuery) (DateRange, error) {
	if !IsNumericField(q.Field) {
		return DateRange{}, apperror.BadRequest("Invalid aggField").WithContext(map[string]any{
			"aggField": q.Field,
			"allowed":  NumericFields,
		})
	}
	if q.GroupBy != "" && q.GroupBy != "deviceName" {
		return DateRange{}, apperror.BadRequest("Invalid groupBy").WithContext(map[string]any{
			"groupBy": q.GroupBy,
			"allowed": GroupableFields,
		})
	}
	if !q.Range.Start.IsZero() && !q.Range.End.IsZero() && q.Range.Start.After(q.Range.End) {
		return DateRange{}, apperror.BadRequest("startDate must not be after endDate")
	}
	return s.Resolver.ResolveWindow(ctx, q.Scope, q.Range, q.RecentMonths)
}

// matchStats selects the scope's readings inside window that carry field.
func matchStats(q StatsQuery, window DateRange) bson.M {
	pred := q.Scope.Filter()
	pred["createdAt"] = window.Predicate()
	pred[q.Field] = bson.M{"$ne": nil}
	if len(q.Filter) > 0 {
		return bson.M{"$and": bson.A{pred, q.Filter}}
	}
	return pred
}

// BuildStatsPipeline returns match, project, sort, group and project stages
// computing max, min, avg and median of q.Field. Max and min carry the
// deviceName and createdAt of the reading that produced them; ties go to
// the newest reading.
func (s *WeatherServiceImpl) BuildStatsPipeline(ctx context.Context, q StatsQuery) (mongo.Pipeline, pipeline.StatGroup, DateRange, error) {
	window, err := s.window(ctx, q)
	if err != nil {
		return nil, pipeline.StatGroup{}, DateRange{}, err
	}

	group := pipeline.StatGroup{
		GroupBy: q.GroupBy,
		Field:   q.Field,
		Carry:   []string{"deviceName", "createdAt"},
	}

	b := pipeline.NewBuilder().
		Match(matchStats(q, window)).
		Project(group.Inputs()).
		Sort(group.PreSort()).
		Append(group.Stages()...)
	if group.Grouped() {
		b.Sort(pipeline.SortSpec{{Field: group.GroupBy, Order: 1}})
	}
	return b.Build(), group, window, nil
}

func (s *WeatherServiceImpl) Stats(ctx context.Context, q StatsQuery) (*StatsResult, error) {
	p, group, window, err := s.BuildStatsPipeline(ctx, q)
	if err != nil {
		return nil, err
	}

	var docs []bson.Raw
	if err := pipeline.Run(ctx, s.Repo, Collection, p, &docs); err != nil {
		return nil, err
	}
	summaries, err := group.DecodeAll(docs)
	if err != nil {
		return nil, err
	}

	return &StatsResult{Field: q.Field, GroupBy: q.GroupBy, Window: window, Result: summaries}, nil
}

// BuildExtremesPipeline groups the window's readings, keeps those equal to
// the group's max or min and returns them newest first.
func (s *WeatherServiceImpl) BuildExtremesPipeline(ctx context.Context, q ExtremesQuery) (mongo.Pipeline, DateRange, error) {
	if q.Operation != "max" && q.Operation != "min" {
		return nil, DateRange{}, apperror.BadRequest("Invalid operation").WithContext(map[string]any{
			"operation": q.Operation,
			"allowed":   []string{"max", "min"},
		})
	}
	window, err := s.window(ctx, q.StatsQuery)
	if err != nil {
		return nil, DateRange{}, err
	}

	field := q.Field
	var id any
	if q.GroupBy != "" {
		id = "$" + q.GroupBy
	}

	p := pipeline.NewBuilder().
		Match(matchStats(q.StatsQuery, window)).
		Project(bson.M{"deviceName": 1, "createdAt": 1, "geoLocation": 1, field: 1}).
		Group(bson.D{
			{Key: "_id", Value: id},
			{Key: "extreme", Value: bson.M{"$" + q.Operation: "$" + field}},
			{Key: "docs", Value: bson.M{"$push": bson.M{
				"_id":         "$_id",
				"deviceName":  "$deviceName",
				"createdAt":   "$createdAt",
				"geoLocation": "$geoLocation",
				field:         "$" + field,
			}}},
		}).
		FilterArray("docs", "doc", bson.M{"$eq": bson.A{"$$doc." + field, "$extreme"}}).
		Unwind("docs").
		ReplaceRoot("docs").
		Sort(pipeline.SortSpec{{Field: "createdAt", Order: -1}}).
		Limit(q.Limit).
		Build()

	return p, window, nil
}

func (s *WeatherServiceImpl) Extremes(ctx context.Context, q ExtremesQuery) (*ExtremesResult, error) {
	p, window, err := s.BuildExtremesPipeline(ctx, q)
	if err != nil {
		return nil, err
	}

	docs := []bson.M{}
	if err := pipeline.Run(ctx, s.Repo, Collection, p, &docs); err != nil {
		return nil, err
	}
	return &ExtremesResult{Field: q.Field, Operation: q.Operation, Window: window, Result: docs}, nil
}

// Import parses a sensor export and inserts its valid rows in batches.
func (s *WeatherServiceImpl) Import(ctx context.Context, r io.Reader, format Format, author *models.User) (*ImportResult, error) {
	parsed, err := ParseReadings(r, format)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}
	if len(parsed.Readings) == 0 {
		return nil, apperror.BadRequest("No valid readings found").WithContext(map[string]any{"errors": parsed.Errors})
	}

	ref := s.authorRef(author)
	for i := range parsed.Readings {
		parsed.Readings[i].CreatedBy = ref
	}

	n, err := s.Repo.InsertMany(ctx, parsed.Readings)
	metrics.WeathersImported.WithLabelValues(string(format)).Add(float64(n))
	if err != nil {
		s.Logger.Warn("weather import stopped", zap.Int("inserted", n), zap.Error(err))
		return nil, err
	}

	s.publish(parsed.Readings)
	return &ImportResult{Inserted: n, Skipped: len(parsed.Errors), Errors: parsed.Errors}, nil
}

func (s *WeatherServiceImpl) Export(ctx context.Context, q common_api.ListQuery, format Format, w io.Writer) error {
	readings, err := s.Repo.Find(ctx, q.Filter, q.Sort, ExportLimit)
	if err != nil {
		return err
	}

	switch format {
	case FormatCSV:
		return WriteCSV(w, readings)
	case FormatXLSX:
		return WriteXLSX(w, readings)
	}
	return apperror.BadRequest("Export format must be csv or xlsx")
}

func (s *WeatherServiceImpl) Devices(ctx context.Context) ([]string, error) {
	return s.Repo.Devices(ctx)
}

func (s *WeatherServiceImpl) authorRef(u *models.User) *models.DBRef {
	if u == nil || u.ID.IsZero() {
		return nil
	}
	return models.UserRef(u.ID, s.dbName)
}

func (s *WeatherServiceImpl) publish(readings []Weather) {
	if s.Publisher != nil && len(readings) > 0 {
		s.Publisher.Publish(readings)
	}
}
