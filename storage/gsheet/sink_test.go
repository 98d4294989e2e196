package gsheet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/aluiziolira/go-fashion-etl/models"
)

type fakeValues struct {
	cleared   []string
	updated   string
	rows      [][]interface{}
	updateErr error
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeValues) Update(_ context.Context, _, rng string, rows [][]interface{}) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = rng
	f.rows = rows
	return nil
}

func sampleRecords() []models.CleanRecord {
	at := time.Date(2025, 6, 29, 10, 0, 0, 0, time.UTC)
	return []models.CleanRecord{
		{Title: "Hoodie 3", Price: 7950080, Rating: 4.8, Colors: 3, Size: models.SizeL, Gender: models.GenderUnisex, Timestamp: at},
		{Title: "Pants 7", Price: 160000, Rating: 3.5, Colors: 1, Size: models.SizeS, Gender: models.GenderMen, Timestamp: at},
	}
}

func TestSinkPersistClearsThenUpdates(t *testing.T) {
	fake := &fakeValues{}
	sink, err := NewSink(Config{SpreadsheetID: "sheet-1", Range: "Sheet1!A1", ClearRange: true},
		func(context.Context) (ValuesService, error) { return fake, nil })
	require.NoError(t, err)

	require.NoError(t, sink.Persist(context.Background(), sampleRecords()))

	assert.Equal(t, []string{"Sheet1"}, fake.cleared)
	assert.Equal(t, "Sheet1!A1", fake.updated)
	require.Len(t, fake.rows, 3)
	assert.Equal(t, []interface{}{"title", "price", "rating", "colors", "size", "gender", "timestamp"}, fake.rows[0])
	assert.Equal(t, []interface{}{"Hoodie 3", 7950080.0, 4.8, 3, "L", "Unisex", "2025-06-29T10:00:00.000000Z"}, fake.rows[1])
}

func TestSinkPersistWithoutClear(t *testing.T) {
	fake := &fakeValues{}
	sink, err := NewSink(Config{SpreadsheetID: "sheet-1"},
		func(context.Context) (ValuesService, error) { return fake, nil })
	require.NoError(t, err)

	require.NoError(t, sink.Persist(context.Background(), nil))
	assert.Empty(t, fake.cleared)
	assert.Equal(t, "Sheet1!A1", fake.updated)
	assert.Len(t, fake.rows, 1, "header only")
}

func TestSinkPersistErrors(t *testing.T) {
	authErr := errors.New("invalid_grant")
	sink, err := NewSink(Config{SpreadsheetID: "sheet-1"},
		func(context.Context) (ValuesService, error) { return nil, authErr })
	require.NoError(t, err)
	err = sink.Persist(context.Background(), sampleRecords())
	require.ErrorIs(t, err, authErr)
	assert.Contains(t, err.Error(), "authenticate")

	updateErr := errors.New("quota exceeded")
	sink, err = NewSink(Config{SpreadsheetID: "sheet-1"},
		func(context.Context) (ValuesService, error) { return &fakeValues{updateErr: updateErr}, nil })
	require.NoError(t, err)
	require.ErrorIs(t, sink.Persist(context.Background(), sampleRecords()), updateErr)
}

func TestNewSinkValidation(t *testing.T) {
	auth := func(context.Context) (ValuesService, error) { return &fakeValues{}, nil }
	_, err := NewSink(Config{}, auth)
	require.Error(t, err)
	_, err = NewSink(Config{SpreadsheetID: "x"}, nil)
	require.Error(t, err)
}

func TestAPIValuesAgainstMockedEndpoint(t *testing.T) {
	transport := httpmock.NewMockTransport()

	var cleared bool
	transport.RegisterRegexpResponder(http.MethodPost, regexp.MustCompile(`/v4/spreadsheets/sheet-1/values/.*:clear`),
		func(req *http.Request) (*http.Response, error) {
			cleared = true
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"spreadsheetId": "sheet-1"})
		})

	var received sheetsapi.ValueRange
	var inputOption string
	transport.RegisterRegexpResponder(http.MethodPut, regexp.MustCompile(`/v4/spreadsheets/sheet-1/values/`),
		func(req *http.Request) (*http.Response, error) {
			inputOption = req.URL.Query().Get("valueInputOption")
			if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
				return nil, err
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"spreadsheetId": "sheet-1",
				"updatedRows":   len(received.Values),
			})
		})

	ctx := context.Background()
	svc, err := sheetsapi.NewService(ctx,
		option.WithHTTPClient(&http.Client{Transport: transport}),
		option.WithEndpoint("https://sheets.test/"),
	)
	require.NoError(t, err)

	sink, err := NewSink(Config{SpreadsheetID: "sheet-1", Range: "Sheet1!A1", ClearRange: true},
		func(context.Context) (ValuesService, error) { return &apiValues{values: svc.Spreadsheets.Values}, nil })
	require.NoError(t, err)

	require.NoError(t, sink.Persist(ctx, sampleRecords()))
	assert.True(t, cleared)
	assert.Equal(t, "RAW", inputOption)
	assert.Len(t, received.Values, 3)
}
