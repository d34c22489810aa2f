// Package importcsv owns the upload endpoint: it normalizes the file to
// UTF-8, detects the dialect, parses rows into candidates and hands them to
// the batch pipeline.
package importcsv

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/encoding"
	"github.com/MrJamesThe3rd/ledgermatch/internal/http/auth"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importbatch"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
)

const maxUploadBytes = 25 << 20

type Handler struct {
	parser   *importer.Service
	batches  *importbatch.Service
	defaults importbatch.Options
}

func NewHandler(parser *importer.Service, batches *importbatch.Service, defaults importbatch.Options) *Handler {
	return &Handler{
		parser:   parser,
		batches:  batches,
		defaults: defaults,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type batchResponse struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	TotalRows   int        `json:"total_rows"`
	Matched     int        `json:"matched"`
	Created     int        `json:"created"`
	Skipped     int        `json:"skipped"`
	Errored     int        `json:"errored"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	header, rows, err := readCSV(content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.Detect(header)
	}

	parseOpts, err := parseOptions(r.FormValue("mapping"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parsed, err := h.parser.Parse(format, header, rows, parseOpts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := h.defaults
	opts.Filename = fileHeader.Filename
	opts.Format = format
	opts.ProgressID = r.FormValue("progress_id")
	opts.FileContent = content

	if v := r.FormValue("matching_enabled"); v != "" {
		opts.MatchingEnabled = v == "true"
	}

	batch, err := h.batches.Run(r.Context(), auth.UserID(r.Context()), parsed, opts)
	if err != nil {
		if errors.Is(err, importbatch.ErrNoRows) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toBatchResponse(batch)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// readCSV decodes the upload to UTF-8 and splits the header off the data
// rows. LazyQuotes and free field counts: issuer exports are not strict CSV.
func readCSV(content []byte) ([]string, [][]string, error) {
	utf8Reader, err := encoding.NewUTF8Reader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, errors.New("failed to decode file: " + err.Error())
	}

	reader := csv.NewReader(utf8Reader)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.New("failed to parse csv: " + err.Error())
	}

	if len(records) == 0 {
		return nil, nil, importer.ErrEmptyFile
	}

	return records[0], records[1:], nil
}

// parseOptions decodes the generic-format column mapping form value, a JSON
// object of column index to field name.
func parseOptions(mapping string) (importer.ParseOptions, error) {
	var opts importer.ParseOptions

	if mapping == "" {
		return opts, nil
	}

	var raw map[string]importer.MappedField
	if err := json.Unmarshal([]byte(mapping), &raw); err != nil {
		return opts, errors.New("invalid mapping: " + err.Error())
	}

	opts.ColumnMapping = make(importer.ColumnMapping, len(raw))

	for col, field := range raw {
		idx, err := strconv.Atoi(col)
		if err != nil || idx < 0 {
			return opts, errors.New("invalid mapping column " + col)
		}

		opts.ColumnMapping[idx] = field
	}

	return opts, nil
}

func toBatchResponse(b *importbatch.Batch) batchResponse {
	return batchResponse{
		ID:          b.ID,
		Filename:    b.Filename,
		Format:      b.Metadata["format"],
		Status:      string(b.Status),
		TotalRows:   b.TotalRows,
		Matched:     b.MatchedCount,
		Created:     b.CreatedCount,
		Skipped:     b.SkippedCount,
		Errored:     b.ErrorCount,
		CompletedAt: b.CompletedAt,
	}
}
