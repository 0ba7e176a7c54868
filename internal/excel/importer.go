package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/internal/pipeline"
	"github.com/example/studybuddy/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	TitleColumn string // Column with the material title
	NotesColumn string // Column with the notes
	FileColumn  string // Column with the path of the attached document
	DateColumn  string // Column with the upload date, today when blank
	SheetName   string // Sheet to import, the first sheet when empty
	StartRow    int    // The row to start importing from (1-based index)
	UploadDir   string // Attached files are copied here when set
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		TitleColumn: "A",
		NotesColumn: "B",
		FileColumn:  "C",
		DateColumn:  "D",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Skipped        int
	MaterialIDs    []int64
	Errors         []string
}

// Uploader is satisfied by *pipeline.Pipeline
type Uploader interface {
	Upload(ctx context.Context, req pipeline.UploadRequest) (*pipeline.UploadResult, error)
}

// Importer feeds sheet rows through the material pipeline
type Importer struct {
	uploader Uploader
	log      *logger.Logger
	now      func() time.Time
}

// NewImporter creates an importer that stores materials through uploader
func NewImporter(uploader Uploader, log *logger.Logger) *Importer {
	return &Importer{uploader: uploader, log: log, now: time.Now}
}

var dateLayouts = []string{models.DateLayout, "2006/01/02", "01-02-06", "1/2/06", "1/2/2006", "02.01.2006"}

var errBlankRow = errors.New("blank row")

// Import reads every row of config.FilePath and uploads it as a material owned by userID
func (i *Importer) Import(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	baseDir := filepath.Dir(config.FilePath)
	start := config.StartRow
	if start < 1 {
		start = 1
	}

	for idx, row := range rows {
		rowNum := idx + 1
		if rowNum < start {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		req, err := i.buildRequest(row, config, baseDir)
		if errors.Is(err, errBlankRow) {
			continue
		}
		result.TotalProcessed++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		req.UserID = userID

		res, err := i.uploader.Upload(ctx, req)
		if err != nil {
			// Only copies made under UploadDir are ours to remove.
			if config.UploadDir != "" {
				pipeline.Unstage(req.FilePath, i.log)
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		result.Created++
		result.MaterialIDs = append(result.MaterialIDs, res.Material.ID)
	}

	i.log.Info("import finished",
		"file", config.FilePath,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (i *Importer) buildRequest(row []string, config ImportConfig, baseDir string) (pipeline.UploadRequest, error) {
	title := cell(row, config.TitleColumn)
	notes := cell(row, config.NotesColumn)
	file := cell(row, config.FileColumn)
	date := cell(row, config.DateColumn)

	if title == "" && notes == "" && file == "" && date == "" {
		return pipeline.UploadRequest{}, errBlankRow
	}
	if title == "" {
		return pipeline.UploadRequest{}, fmt.Errorf("title cannot be empty")
	}

	req := pipeline.UploadRequest{Title: title, Notes: notes, UploadDate: i.now()}
	if date != "" {
		d, err := parseDate(date)
		if err != nil {
			return pipeline.UploadRequest{}, err
		}
		req.UploadDate = d
	}

	if file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		if _, err := os.Stat(file); err != nil {
			return pipeline.UploadRequest{}, fmt.Errorf("attached file: %w", err)
		}
		if config.UploadDir != "" {
			staged, err := pipeline.StageFile(config.UploadDir, file)
			if err != nil {
				return pipeline.UploadRequest{}, err
			}
			file = staged
		}
		req.FilePath = file
	}
	return req, nil
}

// readExcel returns the rows of sheet, or of the first sheet when sheet is empty
func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid upload date %q", s)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	index := 0
	for i := 0; i < len(column); i++ {
		if column[i] < 'A' || column[i] > 'Z' {
			return -1
		}
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
