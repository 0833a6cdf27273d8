package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"barberq/internal/domain"
	"barberq/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	queueSheet    = "Fila"
	activitySheet = "Atividade"
)

// Exporter renders a day's queue and audit trail into an Excel workbook
// for the shop owner.
type Exporter struct {
	repo domain.Repository
	path string
	log  zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "export").Logger()
	}
	return &Exporter{repo: repo, path: path, log: log}
}

// ExportDay writes the workbook and returns its path.
func (e *Exporter) ExportDay(ctx context.Context, day time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	customers, err := e.repo.GetCustomersByDay(ctx, day)
	if err != nil {
		return "", fmt.Errorf("error getting customers: %v", err)
	}
	activity, err := e.repo.GetActivityByDay(ctx, day)
	if err != nil {
		return "", fmt.Errorf("error getting activity: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeQueueSheet(f, day, customers); err != nil {
		return "", err
	}
	if err := e.writeActivitySheet(f, activity); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("queue_%s.xlsx", day.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.log.Info().Str("file_path", filePath).Int("customers", len(customers)).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeQueueSheet(f *excelize.File, day time.Time, customers []models.Customer) error {
	index, err := f.NewSheet(queueSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(queueSheet, "A1", fmt.Sprintf("Fila de %s", day.Format("02/01/2006")))
	_ = f.MergeCell(queueSheet, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(queueSheet, "A1", "A1", titleStyle)

	headers := []string{"Posição", "Nome", "Telefone", "Barbeiro", "Serviço", "Status", "Horário", "Registrado"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(queueSheet, cell, header)
		_ = f.SetCellStyle(queueSheet, cell, cell, headerStyle)
	}

	for i := range customers {
		c := &customers[i]
		row := i + 3

		position := ""
		if c.Position != nil {
			position = fmt.Sprintf("%d", *c.Position)
		}
		scheduled := "sem horário"
		if c.ScheduledTime != nil {
			scheduled = c.ScheduledTime.Format("15:04")
		}

		_ = f.SetCellValue(queueSheet, fmt.Sprintf("A%d", row), position)
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("B%d", row), c.FullName)
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("C%d", row), c.Phone)
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("D%d", row), c.BarberID)
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("E%d", row), c.ServiceID)
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("F%d", row), statusLabel(c.Status))
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("G%d", row), scheduled)
		_ = f.SetCellValue(queueSheet, fmt.Sprintf("H%d", row), c.CreatedAt.Format("02/01/2006 15:04"))
	}

	_ = f.SetColWidth(queueSheet, "A", "A", 10)
	_ = f.SetColWidth(queueSheet, "B", "B", 25)
	_ = f.SetColWidth(queueSheet, "C", "C", 20)
	_ = f.SetColWidth(queueSheet, "D", "E", 15)
	_ = f.SetColWidth(queueSheet, "F", "H", 18)

	return nil
}

func (e *Exporter) writeActivitySheet(f *excelize.File, entries []models.ActivityEntry) error {
	if _, err := f.NewSheet(activitySheet); err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}

	headers := []string{"Horário", "Ação", "Detalhes"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(activitySheet, cell, header)
		_ = f.SetCellStyle(activitySheet, cell, cell, headerStyle)
	}

	for i := range entries {
		row := i + 2
		_ = f.SetCellValue(activitySheet, fmt.Sprintf("A%d", row), entries[i].CreatedAt.Format("15:04:05"))
		_ = f.SetCellValue(activitySheet, fmt.Sprintf("B%d", row), entries[i].Action)
		_ = f.SetCellValue(activitySheet, fmt.Sprintf("C%d", row), entries[i].Details)
	}

	_ = f.SetColWidth(activitySheet, "A", "B", 20)
	_ = f.SetColWidth(activitySheet, "C", "C", 60)

	return nil
}

func statusLabel(status string) string {
	switch status {
	case models.StatusWaiting:
		return "aguardando"
	case models.StatusInService:
		return "em atendimento"
	case models.StatusCompleted:
		return "finalizado"
	default:
		return status
	}
}
