package gsheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// ServiceAccount authenticates with a service-account JSON key file and the spreadsheets scope.
func ServiceAccount(credentialsFile string) Authenticator {
	return func(ctx context.Context) (ValuesService, error) {
		svc, err := sheetsapi.NewService(ctx,
			option.WithCredentialsFile(credentialsFile),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		)
		if err != nil {
			return nil, fmt.Errorf("sheets service from %s: %w", credentialsFile, err)
		}
		return &apiValues{values: svc.Spreadsheets.Values}, nil
	}
}

type apiValues struct {
	values *sheetsapi.SpreadsheetsValuesService
}

func (a *apiValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := a.values.Clear(spreadsheetID, rng, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (a *apiValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error {
	resp, err := a.values.Update(spreadsheetID, rng, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}
	if want := int64(len(rows)); resp.UpdatedRows != 0 && resp.UpdatedRows != want {
		return fmt.Errorf("sheets acknowledged %d rows, sent %d", resp.UpdatedRows, want)
	}
	return nil
}
