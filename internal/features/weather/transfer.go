package weather

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tafe-weather-api/internal/common/models"
	"tafe-weather-api/pkg/filter"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseFormat accepts a format name or a file name.
func ParseFormat(s string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(s)), ".")
	if ext == "" {
		ext = strings.ToLower(s)
	}
	switch Format(ext) {
	case FormatCSV, FormatXLSX, FormatJSON:
		return Format(ext), nil
	}
	return "", ErrUnsupportedFormat
}

// Column names of the sensor export, in export order.
const (
	colDevice        = "Device Name"
	colTime          = "Time"
	colLatitude      = "Latitude"
	colLongitude     = "Longitude"
	colPrecipitation = "Precipitation mm/h"
	colTemperature   = "Temperature (°C)"
	colPressure      = "Atmospheric Pressure (kPa)"
	colWindSpeed     = "Max Wind Speed (m/s)"
	colSolar         = "Solar Radiation (W/m2)"
	colVapor         = "Vapor Pressure (kPa)"
	colHumidity      = "Humidity (%)"
	colWindDirection = "Wind Direction (°)"
)

var exportColumns = []string{
	colDevice, colTime, colLatitude, colLongitude,
	colPrecipitation, colTemperature, colPressure, colWindSpeed,
	colSolar, colVapor, colHumidity, colWindDirection,
}

// measureColumns maps sensor export columns to numeric fields.
var measureColumns = map[string]string{
	colPrecipitation: "precipitation",
	colTemperature:   "temperature",
	colPressure:      "atmosphericPressure",
	colWindSpeed:     "maxWindSpeed",
	colSolar:         "solarRadiation",
	colVapor:         "vaporPressure",
	colHumidity:      "humidity",
	colWindDirection: "windDirection",
}

// headerAliases lets files use the API field names instead.
var headerAliases = map[string]string{
	"deviceName": colDevice,
	"createdAt":  colTime,
	"latitude":   colLatitude,
	"longitude":  colLongitude,
}

func init() {
	for col, field := range measureColumns {
		headerAliases[field] = col
	}
}

func canonicalHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	if col, ok := headerAliases[h]; ok {
		return col
	}
	return h
}

// RowError reports a row that could not be converted. Rows count from 1,
// excluding the header.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ParseResult struct {
	Readings []Weather  `json:"-"`
	Errors   []RowError `json:"errors"`
}

// ParseReadings reads sensor rows from r. Rows that fail conversion are
// reported and skipped.
func ParseReadings(r io.Reader, format Format) (*ParseResult, error) {
	var (
		rows []map[string]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	case FormatJSON:
		rows, err = readJSON(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Readings: make([]Weather, 0, len(rows))}
	for i, row := range rows {
		w, err := rowToWeather(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		result.Readings = append(result.Readings, w)
	}
	return result, nil
}

func readCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	var rows []map[string]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, zipRow(headers, rec))
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("Excel file is empty")
	}

	rows := make([]map[string]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		rows = append(rows, zipRow(all[0], rec))
	}
	return rows, nil
}

// readJSON reads an array of objects. Time may be a string, epoch
// milliseconds or the extended JSON {"$date": {"$numberLong": "..."}}.
func readJSON(r io.Reader) ([]map[string]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		row := make(map[string]string, len(item))
		for k, v := range item {
			row[canonicalHeader(k)] = jsonString(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		// extended JSON wrappers
		for _, key := range []string{"$date", "$numberLong", "$numberDouble", "$numberInt"} {
			if inner, ok := t[key]; ok {
				return jsonString(inner)
			}
		}
	}
	return fmt.Sprint(v)
}

func zipRow(headers, rec []string) map[string]string {
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(rec) {
			row[canonicalHeader(h)] = strings.TrimSpace(rec[i])
		}
	}
	return row
}

func rowToWeather(row map[string]string) (Weather, error) {
	var w Weather

	w.DeviceName = row[colDevice]
	if w.DeviceName == "" || len(w.DeviceName) > 50 {
		return w, fmt.Errorf("%s must be 1-50 characters", colDevice)
	}

	for col, field := range measureColumns {
		raw, ok := row[col]
		if !ok || raw == "" {
			return w, fmt.Errorf("%s is required", col)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return w, fmt.Errorf("%s is not a number: %q", col, raw)
		}
		setMeasure(&w, field, v)
	}

	created, err := parseTime(row[colTime])
	if err != nil {
		return w, err
	}
	w.CreatedAt = created

	lat, latOK := row[colLatitude]
	lon, lonOK := row[colLongitude]
	if latOK && lonOK && lat != "" && lon != "" {
		latitude, err1 := strconv.ParseFloat(lat, 64)
		longitude, err2 := strconv.ParseFloat(lon, 64)
		if err1 != nil || err2 != nil {
			return w, fmt.Errorf("invalid coordinates %q, %q", lat, lon)
		}
		if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
			return w, fmt.Errorf("coordinates out of range %q, %q", lat, lon)
		}
		w.GeoLocation = models.NewPoint(longitude, latitude)
	}
	return w, nil
}

// parseTime accepts epoch milliseconds or any date the filter layer accepts.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", colTime)
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, _, ok := filter.ParseDate(raw); ok {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", colTime, raw)
}

func setMeasure(w *Weather, field string, v float64) {
	switch field {
	case "precipitation":
		w.Precipitation = v
	case "temperature":
		w.Temperature = v
	case "atmosphericPressure":
		w.AtmosphericPressure = v
	case "maxWindSpeed":
		w.MaxWindSpeed = v
	case "solarRadiation":
		w.SolarRadiation = v
	case "vaporPressure":
		w.VaporPressure = v
	case "humidity":
		w.Humidity = v
	case "windDirection":
		w.WindDirection = v
	}
}

func exportRow(w *Weather) []any {
	var lat, lon any = "", ""
	if w.GeoLocation != nil && len(w.GeoLocation.Coordinates) == 2 {
		lon, lat = w.GeoLocation.Coordinates[0], w.GeoLocation.Coordinates[1]
	}
	row := []any{w.DeviceName, w.CreatedAt.UTC().Format(time.RFC3339), lat, lon}
	for _, col := range exportColumns[4:] {
		v, _ := w.Measure(measureColumns[col])
		row = append(row, v)
	}
	return row
}

// WriteCSV writes readings with the sensor export columns.
func WriteCSV(out io.Writer, ws []Weather) error {
	writer := csv.NewWriter(out)
	if err := writer.Write(exportColumns); err != nil {
		return err
	}
	for i := range ws {
		cells := exportRow(&ws[i])
		rec := make([]string, len(cells))
		for j, c := range cells {
			switch v := c.(type) {
			case float64:
				rec[j] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				rec[j] = fmt.Sprint(v)
			}
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes readings to a single "Weathers" sheet.
func WriteXLSX(out io.Writer, ws []Weather) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Weathers"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx := range ws {
		for colIdx, v := range exportRow(&ws[rowIdx]) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	_, err = f.WriteTo(out)
	return err
}
