package reference

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/tealeg/xlsx/v2"
)

// ErrUnsupportedFormat is returned for dataset files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported reference format")

// Source yields a reference dataset.
type Source interface {
	// Name describes the source for logs.
	Name() string
	// Load reads the full dataset.
	Load(ctx context.Context) (Dataset, error)
}

// FileSource reads a dataset from a local .csv or .xlsx file.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return s.Path }

// Load implements Source.
func (s FileSource) Load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	switch strings.ToLower(path.Ext(s.Path)) {
	case ".csv":
		f, err := os.Open(s.Path)
		if err != nil {
			return Dataset{}, fmt.Errorf("open reference csv: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		f, err := xlsx.OpenFile(s.Path)
		if err != nil {
			return Dataset{}, fmt.Errorf("open reference xlsx: %w", err)
		}
		return readWorkbook(f)
	default:
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.Path)
	}
}

// ReadCSV parses a CSV dataset whose first record is the header row.
func ReadCSV(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("read reference csv: %w", err)
	}
	return NewDataset(records), nil
}

// ReadXLSX parses the first sheet of an XLSX workbook.
func ReadXLSX(data []byte) (Dataset, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return Dataset{}, fmt.Errorf("open reference xlsx: %w", err)
	}
	return readWorkbook(f)
}

func readWorkbook(f *xlsx.File) (Dataset, error) {
	if len(f.Sheets) == 0 {
		return Dataset{}, fmt.Errorf("read reference xlsx: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	records := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		records = append(records, cells)
	}
	return NewDataset(records), nil
}

// ObjectGetter is the part of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a .csv or .xlsx dataset from an S3-compatible bucket.
type S3Source struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// Name implements Source.
func (s S3Source) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

// Load implements Source.
func (s S3Source) Load(ctx context.Context) (Dataset, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.Bucket, Key: &s.Key})
	if err != nil {
		return Dataset{}, fmt.Errorf("get reference object %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Dataset{}, fmt.Errorf("read reference object %s: %w", s.Name(), err)
	}

	switch strings.ToLower(path.Ext(s.Key)) {
	case ".csv":
		return ReadCSV(bytes.NewReader(data))
	case ".xlsx":
		return ReadXLSX(data)
	default:
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.Name())
	}
}

// S3Config holds construction parameters for the S3 client.
type S3Config struct {
	Region    string
	Endpoint  string // optional; set for MinIO and other S3-compatible stores
	PathStyle bool
}

// NewS3Client builds an S3 client from the default credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// ParseLocation splits "s3://bucket/key" into its parts. ok is false for
// anything that is not an S3 location.
func ParseLocation(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// NewSource returns the source for location: an S3 URL or a local path.
func NewSource(ctx context.Context, location string, cfg S3Config) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("reference source is required")
	}
	if strings.HasPrefix(location, "s3://") {
		bucket, key, ok := ParseLocation(location)
		if !ok {
			return nil, fmt.Errorf("invalid reference location %q", location)
		}
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return S3Source{Client: client, Bucket: bucket, Key: key}, nil
	}
	return FileSource{Path: location}, nil
}
