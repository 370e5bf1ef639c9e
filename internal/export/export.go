package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"prokat/internal/domain"
	"prokat/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter renders operational snapshots to Excel files on disk for the
// back office. Exports are read-only views over the store.
type Exporter struct {
	repo   domain.Repository
	path   string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, path string, logger *zerolog.Logger) *Exporter {
	if path == "" {
		path = "exports"
	}
	return &Exporter{repo: repo, path: path, logger: logger}
}

// ScheduleGrid writes an assets-by-days availability grid. Blocked days
// (booked or inside the post-return buffer) are marked and shaded.
func (e *Exporter) ScheduleGrid(ctx context.Context, assets []*models.Asset, startDate time.Time, days int) (string, error) {
	if days <= 0 {
		return "", fmt.Errorf("days must be positive")
	}
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	endDate := startDate.AddDate(0, 0, days-1)
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, days)

	blockedStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	row := 3
	for _, asset := range assets {
		nameCell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, nameCell, fmt.Sprintf("%s (%s)", asset.Name, asset.Code))

		calendar, err := e.repo.GetAssetCalendar(ctx, asset.ID, startDate, days)
		if err != nil {
			return "", fmt.Errorf("error getting calendar for asset %d: %v", asset.ID, err)
		}
		for _, day := range calendar {
			col, ok := dateCols[day.Date.Format("2006-01-02")]
			if !ok || day.Available {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, "X")
			_ = f.SetCellStyle(sheetName, cell, cell, blockedStyle)
		}
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 30)

	lastCol := columnName(days + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_%dd.xlsx", startDate.Format("2006-01-02"), days)
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule export created")
	return filePath, nil
}

// WalletStatement writes the full transaction history for a wallet with
// the derived balance in the footer.
func (e *Exporter) WalletStatement(ctx context.Context, walletID int64) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	txs, err := e.repo.ListWalletTransactions(ctx, walletID)
	if err != nil {
		return "", fmt.Errorf("error getting transactions: %v", err)
	}
	balance, err := e.repo.GetBalance(ctx, walletID)
	if err != nil {
		return "", fmt.Errorf("error getting balance: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Statement"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Date", "Type", "Direction", "Amount", "Booking"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 2
	for _, tx := range txs {
		direction := "in"
		if tx.SourceWalletID != nil && *tx.SourceWalletID == walletID {
			direction = "out"
		}
		bookingRef := ""
		if tx.BookingID != nil {
			bookingRef = fmt.Sprintf("%d", *tx.BookingID)
		}

		values := []interface{}{
			tx.CreatedAt.Format("02.01.2006 15:04"),
			tx.Type,
			direction,
			tx.Amount,
			bookingRef,
		}
		for i, value := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
		row++
	}

	balanceCell, _ := excelize.CoordinatesToCellName(1, row+1)
	_ = f.SetCellValue(sheetName, balanceCell, fmt.Sprintf("Balance: %d", balance))
	balanceStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(sheetName, balanceCell, balanceCell, balanceStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("statement_wallet_%d_%s.xlsx", walletID, time.Now().Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("statement export created")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, sheetName string, startDate time.Time, days int) map[string]int {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	dateCols := make(map[string]int)
	for i := 0; i < days; i++ {
		date := startDate.AddDate(0, 0, i)
		col := i + 2
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, date.Format("02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[date.Format("2006-01-02")] = col
	}
	return dateCols
}

func columnName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}
