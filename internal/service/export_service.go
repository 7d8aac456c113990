package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ripetiamo/backoffice-api/internal/dates"
	"github.com/ripetiamo/backoffice-api/internal/models"
	"github.com/ripetiamo/backoffice-api/pkg/export"
	"github.com/ripetiamo/backoffice-api/pkg/storage"
)

type unpaidBookingProvider interface {
	UnpaidKeys(ctx context.Context) (map[string]struct{}, []models.Booking, error)
}

type contactBucketProvider interface {
	Buckets(ctx context.Context, referenceDay time.Time, includeCompleted bool) (*models.ContactBuckets, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	bookings unpaidBookingProvider
	contacts contactBucketProvider
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	now      func() time.Time
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(bookings unpaidBookingProvider, contacts contactBucketProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		bookings: bookings,
		contacts: contacts,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		cfg:      cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeUnpaidBookings:
		return s.buildUnpaidBookingsDataset(ctx, job.Params)
	case models.ReportTypeDueContacts:
		return s.buildDueContactsDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildUnpaidBookingsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	_, bookings, err := s.bookings.UnpaidKeys(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Starts At", "Student Email", "Call Type", "Duration (min)", "Status", "Note"}
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		if params.StudentID != nil && (b.StudentID == nil || *b.StudentID != *params.StudentID) {
			continue
		}
		rows = append(rows, map[string]string{
			"Starts At":      b.StartsAt.Format(time.RFC3339),
			"Student Email":  b.StudentEmail,
			"Call Type":      b.CallTypeSlug,
			"Duration (min)": strconv.Itoa(b.DurationMinutes),
			"Status":         string(b.Status),
			"Note":           b.Note,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, "Unpaid Bookings", nil
}

func (s *ExportService) buildDueContactsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	referenceDay := s.now()
	if params.ReferenceDay != "" {
		parsed, err := time.Parse("2006-01-02", params.ReferenceDay)
		if err != nil {
			return export.Dataset{}, "", fmt.Errorf("invalid reference day %q: %w", params.ReferenceDay, err)
		}
		referenceDay = parsed
	}
	buckets, err := s.contacts.Buckets(ctx, referenceDay, false)
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Name", "Phone", "Next Follow-Up", "Last Contacted", "Note"}
	rows := make([]map[string]string, 0, len(buckets.Due))
	for _, c := range buckets.Due {
		next := ""
		if c.NextFollowUpAt != nil {
			next = dates.DayKey(*c.NextFollowUpAt)
		}
		last := ""
		if c.LastContactedAt != nil {
			last = dates.DayKey(*c.LastContactedAt)
		}
		rows = append(rows, map[string]string{
			"Name":           c.Name,
			"Phone":          c.Phone,
			"Next Follow-Up": next,
			"Last Contacted": last,
			"Note":           c.Note,
		})
	}
	title := fmt.Sprintf("Due Contacts %s", dates.DayKey(referenceDay))
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(string(job.Type)), timestamp, job.Params.Format)
}
