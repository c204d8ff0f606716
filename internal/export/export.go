package export

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/journal"
)

// Format is the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrNothingToExport is returned when no entry matches the filters.
var ErrNothingToExport = errors.New("no journal entries match the export criteria")

// Options configures the export behavior
type Options struct {
	Format          Format
	StartTime       time.Time
	EndTime         time.Time
	OperationFilter string // e.g. "stake"
	OnlyCommitted   bool
	OutputDir       string
}

// Summary aggregates the exported entries.
type Summary struct {
	Committed   int               `json:"committed"`
	Rejected    int               `json:"rejected"`
	Unconfirmed int               `json:"unconfirmed"`
	ByOperation map[string]int    `json:"by_operation"`
	Volume      map[string]uint64 `json:"committed_volume"`
}

// JournalExporter writes journal entries to files.
type JournalExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewJournalExporter(logger *zap.Logger) *JournalExporter {
	return &JournalExporter{
		logger: logger,
		now:    time.Now,
	}
}

// Export writes the entries that pass the filters, oldest first, and returns
// the path of the created file.
func (je *JournalExporter) Export(entries []journal.Entry, options Options) (string, error) {
	filtered := je.filter(entries, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Time.Equal(filtered[j].Time) {
			return filtered[i].ID < filtered[j].ID
		}
		return filtered[i].Time.Before(filtered[j].Time)
	})

	outputPath := filepath.Join(options.OutputDir, je.filename(filtered[0], options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV, "":
		err = writeCSV(filtered, outputPath)
	case FormatJSON:
		err = je.writeJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	je.logger.Info("Journal exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (je *JournalExporter) filter(entries []journal.Entry, options Options) []journal.Entry {
	var filtered []journal.Entry
	for _, e := range entries {
		if !options.StartTime.IsZero() && e.Time.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && e.Time.After(options.EndTime) {
			continue
		}
		if options.OperationFilter != "" && e.Operation != options.OperationFilter {
			continue
		}
		if options.OnlyCommitted && e.Outcome != journal.OutcomeCommitted {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func (je *JournalExporter) filename(first journal.Entry, options Options) string {
	prefix := "journal_all"
	if options.OperationFilter != "" {
		prefix = "journal_" + options.OperationFilter
	}
	if pool := first.PoolAddress.String(); len(pool) >= 8 {
		prefix += "_" + pool[:8]
	}
	format := options.Format
	if format == "" {
		format = FormatCSV
	}
	return fmt.Sprintf("%s_%s.%s", prefix, je.now().Format("20060102_150405"), format)
}

// CSVHeaders returns the column names of the CSV export.
func CSVHeaders() []string {
	return []string{"id", "time", "pool_address", "pool_id", "operation", "signer", "amount", "outcome", "code", "error", "data"}
}

func toCSV(e journal.Entry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Time.UTC().Format(time.RFC3339),
		e.PoolAddress.String(),
		e.PoolID,
		e.Operation,
		e.Signer.String(),
		strconv.FormatUint(e.Amount, 10),
		e.Outcome,
		strconv.Itoa(e.Code),
		e.Error,
		hex.EncodeToString(e.Data),
	}
}

func writeCSV(entries []journal.Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		if err := writer.Write(toCSV(e)); err != nil {
			return fmt.Errorf("failed to write entry %d: %w", e.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonEntry struct {
	ID          int64     `json:"id"`
	Time        time.Time `json:"time"`
	PoolAddress string    `json:"pool_address"`
	PoolID      string    `json:"pool_id"`
	Operation   string    `json:"operation"`
	Signer      string    `json:"signer"`
	Amount      uint64    `json:"amount"`
	Outcome     string    `json:"outcome"`
	Code        int       `json:"code,omitempty"`
	Error       string    `json:"error,omitempty"`
	Data        string    `json:"data"`
}

func (je *JournalExporter) writeJSON(entries []journal.Entry, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, jsonEntry{
			ID:          e.ID,
			Time:        e.Time.UTC(),
			PoolAddress: e.PoolAddress.String(),
			PoolID:      e.PoolID,
			Operation:   e.Operation,
			Signer:      e.Signer.String(),
			Amount:      e.Amount,
			Outcome:     e.Outcome,
			Code:        e.Code,
			Error:       e.Error,
			Data:        hex.EncodeToString(e.Data),
		})
	}

	exportData := struct {
		ExportTime time.Time   `json:"export_time"`
		EntryCount int         `json:"entry_count"`
		Entries    []jsonEntry `json:"entries"`
		Summary    Summary     `json:"summary"`
	}{
		ExportTime: je.now().UTC(),
		EntryCount: len(out),
		Entries:    out,
		Summary:    Summarize(entries),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize counts entries by outcome and operation and sums committed amounts.
func Summarize(entries []journal.Entry) Summary {
	s := Summary{
		ByOperation: make(map[string]int),
		Volume:      make(map[string]uint64),
	}
	for _, e := range entries {
		s.ByOperation[e.Operation]++
		switch e.Outcome {
		case journal.OutcomeCommitted:
			s.Committed++
			s.Volume[e.Operation] += e.Amount
		case journal.OutcomeUnconfirmed:
			s.Unconfirmed++
		default:
			s.Rejected++
		}
	}
	return s
}
