package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"barberq/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	queueSheetName    = "Queue"
	activitySheetName = "Activity"
)

// SheetsService mirrors the queue into a Google spreadsheet the shop
// owner can open from anywhere.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
	}, nil
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, queueSheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// ReplaceQueueSheet rewrites the queue sheet with the day's customers.
func (s *SheetsService) ReplaceQueueSheet(ctx context.Context, day time.Time, customers []models.Customer) error {
	values := [][]interface{}{
		{"Date", "Position", "Name", "Phone", "Barber", "Service", "Status", "Scheduled", "Created At"},
	}

	for i := range customers {
		c := &customers[i]

		position := ""
		if c.Position != nil {
			position = fmt.Sprintf("%d", *c.Position)
		}
		scheduled := ""
		if c.ScheduledTime != nil {
			scheduled = c.ScheduledTime.Format("15:04")
		}

		values = append(values, []interface{}{
			day.Format("2006-01-02"),
			position,
			c.FullName,
			c.Phone,
			c.BarberID,
			c.ServiceID,
			c.Status,
			scheduled,
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	// Сначала очищаем лист, чтобы не оставались хвосты от прошлого снимка
	clearRange := queueSheetName + "!A:I"
	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear queue sheet: %v", err)
	}

	rangeData := fmt.Sprintf("%s!A1:I%d", queueSheetName, len(values))
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// AppendActivity appends audit entries to the activity sheet.
func (s *SheetsService) AppendActivity(ctx context.Context, entries []models.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var values [][]interface{}
	for i := range entries {
		values = append(values, []interface{}{
			entries[i].CreatedAt.Format("2006-01-02 15:04:05"),
			entries[i].Action,
			entries[i].Details,
		})
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, activitySheetName+"!A:A", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
